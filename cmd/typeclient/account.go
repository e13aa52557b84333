package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rickgao/elevenfingers/internal/api"
	"github.com/rickgao/elevenfingers/internal/auth"
	"github.com/rickgao/elevenfingers/internal/config"
)

type apiFlags struct {
	configPath string
	url        string
	timeout    time.Duration
	retries    int
}

func (f *apiFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.configPath, "config", "", "config file; its api section seeds the flags below")
	cmd.Flags().StringVar(&f.url, "api-url", config.DefaultAPIURL, "account backend URL")
	cmd.Flags().DurationVar(&f.timeout, "timeout", config.DefaultAPITimeout, "request timeout")
	cmd.Flags().IntVar(&f.retries, "retries", config.DefaultMaxRetries, "retries on 5xx/429 (0 = none)")
}

// load returns the config named by --config, or defaults when none is given.
func (f *apiFlags) load() (*config.ClientConfig, error) {
	if f.configPath == "" {
		cfg := &config.ClientConfig{}
		cfg.ApplyDefaults()
		return cfg, nil
	}
	return config.LoadAndValidate(f.configPath)
}

// client builds an account client from the config's api section. Flags set
// on the command line take precedence.
func (f *apiFlags) client(cmd *cobra.Command, cfg *config.ClientConfig) (*api.Client, error) {
	url, timeout, retries := cfg.API.URL, cfg.API.Timeout, cfg.API.Retries()

	flags := cmd.Flags()
	if flags.Changed("api-url") {
		url = f.url
	}
	if flags.Changed("timeout") {
		timeout = f.timeout
	}
	if flags.Changed("retries") {
		retries = f.retries
	}
	if retries < 0 {
		return nil, fmt.Errorf("--retries must be >= 0, got %d", retries)
	}

	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	return api.NewClient(url,
		api.WithLogger(newLogger(level)),
		api.WithTimeout(timeout),
		api.WithRetries(retries, time.Second),
	), nil
}

func newLoginCmd() *cobra.Command {
	var (
		flags    apiFlags
		username string
		password string
		out      string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Obtain a bearer token from the account backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			c, err := flags.client(cmd, cfg)
			if err != nil {
				return err
			}
			tok, err := c.Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			if out == "" {
				fmt.Fprintln(cmd.OutOrStdout(), tok.AccessToken)
				return nil
			}
			if err := auth.SaveToken(out, tok.AccessToken); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "token written to %s\n", out)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&username, "username", "", "username or email")
	cmd.Flags().StringVar(&password, "password", "", "password")
	cmd.Flags().StringVar(&out, "out", "", "write the token to this file instead of stdout")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("password")

	return cmd
}

func newSignupCmd() *cobra.Command {
	var (
		flags apiFlags
		req   api.SignupRequest
	)

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			c, err := flags.client(cmd, cfg)
			if err != nil {
				return err
			}
			user, err := c.Signup(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %s)\n", user.Username, user.ID)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&req.Email, "email", "", "email address")
	cmd.Flags().StringVar(&req.Username, "username", "", "username")
	cmd.Flags().StringVar(&req.Password, "password", "", "password")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("password")

	return cmd
}

func newVerifyCmd() *cobra.Command {
	var (
		flags     apiFlags
		token     string
		tokenFile string
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check a bearer token against the account backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			if token == "" && tokenFile == "" {
				token, tokenFile = cfg.Server.Token, cfg.Server.TokenFile
			}
			creds, err := auth.LoadCredentials(token, tokenFile)
			if err != nil {
				return err
			}
			if creds.Anonymous() {
				return fmt.Errorf("one of --token, --token-file or a configured server token is required")
			}
			c, err := flags.client(cmd, cfg)
			if err != nil {
				return err
			}
			v, err := c.Verify(cmd.Context(), creds.Token)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "token valid=%t username=%s\n", v.Valid, v.Username)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&token, "token", "", "bearer token (default: server.token from --config)")
	cmd.Flags().StringVar(&tokenFile, "token-file", "", "file holding the bearer token (default: server.token_file from --config)")

	return cmd
}
