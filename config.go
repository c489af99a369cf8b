/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Seednode/hideseek/relay"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind           string
	corsOrigins    []string
	joinURL        string
	maxMessageSize int64
	messageBurst   int
	messageRate    float64
	metrics        bool
	pingTimeout    time.Duration
	port           int
	prefix         string
	profile        bool
	tlsCert        string
	tlsKey         string
	verbose        bool
	version        bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.pingTimeout < 0 {
		return fmt.Errorf("invalid ping timeout (must not be negative): %s", c.pingTimeout)
	}
	if c.maxMessageSize < 1 {
		return fmt.Errorf("invalid max message size (must be positive): %d", c.maxMessageSize)
	}
	if c.messageRate < 0 {
		return fmt.Errorf("invalid message rate (must not be negative): %v", c.messageRate)
	}
	if c.messageRate > 0 && c.messageBurst < 1 {
		return fmt.Errorf("invalid message burst (must be at least 1 when rate limiting): %d", c.messageBurst)
	}
	if c.joinURL != "" {
		u, err := url.Parse(c.joinURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid join url (must be an absolute http or https url): %q", c.joinURL)
		}
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func (c *Config) relayOptions(m *relay.Metrics) relay.Options {
	return relay.Options{
		PingTimeout:  c.pingTimeout,
		MessageRate:  c.messageRate,
		MessageBurst: c.messageBurst,
		Logger:       relayLogger{cfg: c},
		Metrics:      m,
	}
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("HIDESEEK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "hideseek",
		Short:         "Room relay for a LAN hide-and-seek party game.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: HIDESEEK_BIND)")
	fs.StringSliceVar(&cfg.corsOrigins, "cors-origin", nil, "origin allowed to query the room api, may be repeated (env: HIDESEEK_CORS_ORIGIN)")
	fs.StringVar(&cfg.joinURL, "join-url", "", "game client url encoded in room qr codes, defaults to this server (env: HIDESEEK_JOIN_URL)")
	fs.Int64Var(&cfg.maxMessageSize, "max-message-size", 64*1024, "largest accepted websocket frame, in bytes (env: HIDESEEK_MAX_MESSAGE_SIZE)")
	fs.IntVar(&cfg.messageBurst, "message-burst", 40, "frames a client may send at once before rate limiting applies (env: HIDESEEK_MESSAGE_BURST)")
	fs.Float64Var(&cfg.messageRate, "message-rate", 0, "sustained frames per second allowed per client, 0 to disable (env: HIDESEEK_MESSAGE_RATE)")
	fs.BoolVar(&cfg.metrics, "metrics", false, "expose prometheus metrics at /metrics (env: HIDESEEK_METRICS)")
	fs.DurationVar(&cfg.pingTimeout, "ping-timeout", relay.DefaultPingTimeout, "time before silent clients are disconnected, 0 to disable (env: HIDESEEK_PING_TIMEOUT)")
	fs.IntVarP(&cfg.port, "port", "p", 3001, "port to listen on (env: HIDESEEK_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: HIDESEEK_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: HIDESEEK_PROFILE)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: HIDESEEK_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: HIDESEEK_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: HIDESEEK_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: HIDESEEK_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("hideseek v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
