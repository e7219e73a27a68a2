// Package main is the operator CLI for a running bridge.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Aquillum/LiteClaw/internal/channel"
	"github.com/Aquillum/LiteClaw/internal/version"
)

const (
	defaultBridgeURL = "http://localhost:3040"
	defaultTimeout   = 30 * time.Second
)

type cliOptions struct {
	bridgeURL string
	timeout   time.Duration
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &cliOptions{}
	root := &cobra.Command{
		Use:           "liteclaw",
		Short:         "Talk to a running LiteClaw bridge",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	bridgeURL := os.Getenv("BRIDGE_URL")
	if bridgeURL == "" {
		bridgeURL = defaultBridgeURL
	}
	root.PersistentFlags().StringVar(&opts.bridgeURL, "url", bridgeURL, "bridge base URL")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", defaultTimeout, "request timeout")
	root.AddCommand(
		sendCmd(opts),
		typingCmd(opts),
		statusCmd(opts),
		versionCmd(),
	)
	return root
}

// client tags every request with a fresh X-Request-ID so it can be found in the bridge logs.
func (o *cliOptions) client() *resty.Client {
	return resty.New().
		SetBaseURL(strings.TrimRight(o.bridgeURL, "/")).
		SetTimeout(o.timeout).
		SetHeader("User-Agent", "liteclaw-cli/"+version.Version).
		OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			req.SetHeader("X-Request-ID", uuid.NewString())
			return nil
		})
}

func sendCmd(opts *cliOptions) *cobra.Command {
	var (
		req       channel.SendRequest
		platform  string
		mediaType string
	)
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a text or media message",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req.Platform = channel.Platform(platform)
			if req.URLOrPath != "" {
				req.IsMedia = true
				req.Type = channel.MediaType(mediaType)
			}
			return post(cmd.OutOrStdout(), opts.client(), "/whatsapp/send", req)
		},
	}
	cmd.Flags().StringVar(&req.To, "to", "", "recipient (chat id, @username, channel or phone)")
	cmd.Flags().StringVarP(&platform, "platform", "p", "", "whatsapp, telegram or slack (default whatsapp)")
	cmd.Flags().StringVarP(&req.Message, "message", "m", "", "text to send")
	cmd.Flags().StringVar(&req.URLOrPath, "media", "", "media URL or local path")
	cmd.Flags().StringVar(&mediaType, "type", string(channel.MediaImage), "media type: image, gif, video, audio or document")
	cmd.Flags().StringVar(&req.Caption, "caption", "", "media caption")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func typingCmd(opts *cliOptions) *cobra.Command {
	var (
		req      channel.TypingRequest
		platform string
		stop     bool
	)
	cmd := &cobra.Command{
		Use:   "typing",
		Short: "Start or stop the typing indicator",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req.Platform = channel.Platform(platform)
			path := "/whatsapp/typing"
			if stop {
				path = "/whatsapp/stop-typing"
			}
			return post(cmd.OutOrStdout(), opts.client(), path, req)
		},
	}
	cmd.Flags().StringVar(&req.To, "to", "", "recipient")
	cmd.Flags().StringVarP(&platform, "platform", "p", "", "whatsapp, telegram or slack (default whatsapp)")
	cmd.Flags().BoolVar(&stop, "stop", false, "stop instead of start")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func statusCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show platform status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := opts.client().R().
				SetContext(cmd.Context()).
				Get("/status")
			if err != nil {
				return err
			}
			return printResponse(cmd.OutOrStdout(), resp)
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "LiteClaw CLI %s\n", version.GetInfo())
		},
	}
}

func post(w io.Writer, client *resty.Client, path string, body any) error {
	resp, err := client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(path)
	if err != nil {
		return err
	}
	return printResponse(w, resp)
}

// printResponse pretty-prints the JSON body and turns non-2xx replies into errors.
func printResponse(w io.Writer, resp *resty.Response) error {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, resp.Body(), "", "  "); err != nil {
		pretty.Reset()
		pretty.Write(resp.Body())
	}
	if pretty.Len() > 0 {
		fmt.Fprintln(w, pretty.String())
	}
	if resp.IsError() {
		return fmt.Errorf("bridge returned %s", resp.Status())
	}
	return nil
}
