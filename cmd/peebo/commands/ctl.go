package commands

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/peebo/peebo/internal/channel"
	"github.com/peebo/peebo/internal/control"
	"github.com/peebo/peebo/internal/conventions"
)

type CtlCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	cmdType    string
	params     []string
	channelURL string
	timeout    time.Duration
}

// NewCtlCommand returns the ctl command.
func NewCtlCommand(rootCmd *RootCommand, app *kingpin.Application) *CtlCommand {
	c := &CtlCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("ctl", "Send one browser command to a running server.")
	c.Cmd.Arg("type", "Command type (ping, navigate, click, type, extract_dom...).").Required().StringVar(&c.cmdType)
	c.Cmd.Flag("param", "Command parameter as KEY=VALUE, JSON values are decoded (repeatable).").Short('p').StringsVar(&c.params)
	c.Cmd.Flag("channel-url", "Command channel websocket URL, defaults to the listen address one.").StringVar(&c.channelURL)
	c.Cmd.Flag("timeout", "Maximum time to wait for the response.").Default("60s").DurationVar(&c.timeout)

	return c
}

func (c CtlCommand) Name() string { return c.Cmd.FullCommand() }

func (c CtlCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	params, err := parseParams(c.params)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return err
	}
	if _, err := control.Parse(c.cmdType, raw); err != nil {
		return fmt.Errorf("invalid command: %w", err)
	}

	url := c.channelURL
	if url == "" {
		url = conventions.ChannelURL(c.rootCmd.Listen)
	}
	client, err := channel.NewClient(channel.ClientConfig{
		URL:            url,
		DefaultTimeout: c.timeout,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("could not create channel client: %w", err)
	}
	defer client.Close()

	resp, err := client.Call(ctx, c.cmdType, params)
	if err != nil {
		return fmt.Errorf("could not send command: %w", err)
	}

	if err := c.saveScreenshot(&resp); err != nil {
		logger.Warningf("Could not save screenshot: %s", err)
	}

	enc := json.NewEncoder(c.rootCmd.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		return fmt.Errorf("could not print response: %w", err)
	}

	return resp.Err()
}

// saveScreenshot writes a returned screenshot to the data dir and replaces it
// with its path in the response.
func (c CtlCommand) saveScreenshot(resp *channel.Response) error {
	b64, ok := resp.Result["screenshot"].(string)
	if !ok || b64 == "" {
		return nil
	}

	img, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return fmt.Errorf("invalid screenshot data: %w", err)
	}

	path := conventions.ScreenshotPath(c.rootCmd.DataDir, time.Now().UTC().Format("20060102-150405.000"))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(path, img, 0644); err != nil {
		return err
	}

	resp.Result["screenshot"] = path
	return nil
}

// parseParams parses KEY=VALUE specs. Values that are valid JSON are decoded,
// anything else is kept as a string.
func parseParams(specs []string) (map[string]any, error) {
	params := map[string]any{}
	for _, spec := range specs {
		key, value, ok := strings.Cut(spec, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid param %q, must be KEY=VALUE", spec)
		}

		var v any
		if err := json.Unmarshal([]byte(value), &v); err != nil {
			v = value
		}
		params[key] = v
	}
	return params, nil
}
