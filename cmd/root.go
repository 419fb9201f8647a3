package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"filestack/client"
	"filestack/internal"
	"filestack/utils"
)

var (
	cfgFile   string
	policy    string
	signature string
	config    *internal.Config
	settings  = viper.New()
)

var rootCmd = &cobra.Command{
	Use:     "filestack",
	Short:   "Fetch, download and store files through the Filestack API",
	Version: internal.Version,
	Long: `filestack references files stored with Filestack by handle and lets you
read their content and metadata, download them, or store new files.

Examples:
  filestack url 5aYkEQJSQCmYShsoCnZN
  filestack metadata --field size --field filename 5aYkEQJSQCmYShsoCnZN
  filestack download 5aYkEQJSQCmYShsoCnZN ./downloads/
  filestack store --api-key KEY --access private ./report.pdf
  filestack store --api-key KEY https://example.com/image.png

Environment Variables:
  FILESTACK_API_KEY     API key used by store
  FILESTACK_CDN_URL     CDN base URL
  FILESTACK_API_URL     API base URL
  FILESTACK_PROXY       HTTP/SOCKS5 proxy URL
  FILESTACK_LIMIT_RATE  Download bandwidth limit (e.g., 5M)
  FILESTACK_LOG_LEVEL   Log level (debug, info, warn, error)`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfiguration(); err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		if err := internal.InitLogger(config); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		internal.LogDebug("Configuration loaded: cdn=%s, api=%s, timeout=%s, proxy=%s, limit=%s",
			config.CDNURL, config.APIURL, config.Timeout, config.ProxyURL, config.RateLimit)
		return nil
	},
}

var urlCmd = &cobra.Command{
	Use:   "url <HANDLE>",
	Short: "Print the CDN URL of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, err := newClient()
		if err != nil {
			return err
		}

		security, err := securityFromFlags()
		if err != nil {
			return err
		}

		link := fs.Filelink(args[0])
		if security != nil {
			fmt.Fprintln(cmd.OutOrStdout(), link.SignedURL(security))
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), link.URL())
		return nil
	},
}

var contentCmd = &cobra.Command{
	Use:   "content <HANDLE>",
	Short: "Write the content of a file to stdout or --output",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithSignals(func(ctx context.Context) error {
			fs, err := newClient()
			if err != nil {
				return err
			}
			security, err := securityFromFlags()
			if err != nil {
				return err
			}

			data, err := fs.Filelink(args[0]).Content(ctx, security)
			if err != nil {
				internal.LogFailure(err)
				return err
			}

			output, _ := cmd.Flags().GetString("output")
			if output == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			internal.LogInfo("Wrote %s to %s", utils.FormatBytes(int64(len(data))), output)
			return nil
		})
	},
}

var metadataCmd = &cobra.Command{
	Use:   "metadata <HANDLE>",
	Short: "Print file metadata as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithSignals(func(ctx context.Context) error {
			fs, err := newClient()
			if err != nil {
				return err
			}
			security, err := securityFromFlags()
			if err != nil {
				return err
			}

			fields, _ := cmd.Flags().GetStringSlice("field")
			metadata, err := fs.Filelink(args[0]).Metadata(ctx, fields, security)
			if err != nil {
				internal.LogFailure(err)
				return err
			}
			return writeJSON(cmd.OutOrStdout(), metadata)
		})
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download <HANDLE> <DESTINATION>",
	Short: "Download a file to a path or into a directory",
	Long: `Download a file. When DESTINATION is an existing directory, or ends in a
path separator, the stored filename is used inside it. The file is written to
DESTINATION.part first and only moved into place once the transfer completes.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithSignals(func(ctx context.Context) error {
			fs, err := newClient()
			if err != nil {
				return err
			}
			security, err := securityFromFlags()
			if err != nil {
				return err
			}

			tracker := utils.NewProgressTrackerWithOutput(cmd.ErrOrStderr(), config.QuietMode)
			path, err := fs.Filelink(args[0]).DownloadWithProgress(ctx, args[1], security, tracker)
			if err != nil {
				internal.LogFailure(err)
				return err
			}

			tracker.SetFilename(path)
			summary := tracker.Summary()
			internal.LogInfo("Downloaded %s to %s in %v", utils.FormatBytes(summary.TotalBytes), path, summary.TotalTime.Round(time.Millisecond))
			return nil
		})
	},
}

var storeCmd = &cobra.Command{
	Use:   "store <PATH_OR_URL>",
	Short: "Store a local file or remote URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithSignals(func(ctx context.Context) error {
			fs, err := newClient()
			if err != nil {
				return err
			}
			security, err := securityFromFlags()
			if err != nil {
				return err
			}

			opts, err := storeOptionsFromFlags(cmd.Flags())
			if err != nil {
				return err
			}

			link, err := fs.Store(ctx, args[0], opts, security)
			if err != nil {
				internal.LogFailure(err)
				return err
			}

			return writeJSON(cmd.OutOrStdout(), map[string]string{
				"handle": link.Handle(),
				"url":    link.URL(),
			})
		})
	},
}

// loadConfiguration layers flags, environment and config file into config
func loadConfiguration() error {
	loaded, err := internal.LoadConfig(settings, cfgFile)
	if err != nil {
		return err
	}
	config = loaded
	return nil
}

func newClient() (*client.Client, error) {
	return client.New(config)
}

// securityFromFlags returns the security policy given on the command line,
// or nil when none was given
func securityFromFlags() (*internal.Security, error) {
	if policy == "" && signature == "" {
		return nil, nil
	}
	if policy == "" || signature == "" {
		return nil, internal.NewValidationError("security", "--policy and --signature must be given together")
	}
	return &internal.Security{Policy: policy, Signature: signature}, nil
}

func storeOptionsFromFlags(flags *pflag.FlagSet) (*client.StoreOptions, error) {
	opts := &client.StoreOptions{}
	opts.Location, _ = flags.GetString("location")
	opts.Filename, _ = flags.GetString("filename")
	opts.Mimetype, _ = flags.GetString("mimetype")
	opts.Path, _ = flags.GetString("path")
	opts.Container, _ = flags.GetString("container")
	opts.Access, _ = flags.GetString("access")
	if flags.Changed("base64decode") {
		decode, err := flags.GetBool("base64decode")
		if err != nil {
			return nil, err
		}
		opts.Base64Decode = &decode
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// runWithSignals runs fn with a context cancelled on SIGINT/SIGTERM
func runWithSignals(fn func(ctx context.Context) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := fn(ctx)
	if ctx.Err() != nil && err != nil {
		internal.LogInfo("Operation cancelled by signal")
		return fmt.Errorf("cancelled: %w", err)
	}
	return err
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func bindConfig(key string, flag *pflag.Flag) {
	if err := settings.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

func init() {
	defaults := internal.DefaultConfig()
	flags := rootCmd.PersistentFlags()

	flags.StringVar(&cfgFile, "config", "", "Config file (default ./filestack.yaml or ~/.config/filestack/filestack.yaml)")
	flags.String("api-key", "", "Filestack API key (env: FILESTACK_API_KEY)")
	flags.String("cdn-url", defaults.CDNURL, "CDN base URL (env: FILESTACK_CDN_URL)")
	flags.String("api-url", defaults.APIURL, "API base URL (env: FILESTACK_API_URL)")
	flags.Duration("timeout", defaults.Timeout, "Time to wait for response headers; transfers are not cut off (env: FILESTACK_TIMEOUT)")
	flags.String("proxy", "", "HTTP/SOCKS5 proxy URL (env: FILESTACK_PROXY)")
	flags.StringP("limit-rate", "r", "", "Download bandwidth limit (e.g., 5M for 5MB/s) (env: FILESTACK_LIMIT_RATE)")
	flags.StringVar(&policy, "policy", "", "Security policy for protected files")
	flags.StringVar(&signature, "signature", "", "Signature of the security policy")
	flags.BoolP("quiet", "q", false, "Suppress progress output (env: FILESTACK_QUIET)")
	flags.BoolP("debug", "d", false, "Enable debug logging with file and line information (env: FILESTACK_DEBUG)")
	flags.String("log-level", defaults.LogLevel, "Set log level (debug, info, warn, error) (env: FILESTACK_LOG_LEVEL)")
	flags.String("log-file", "", "Write logs to file instead of stderr (env: FILESTACK_LOG_FILE)")

	bindConfig("api_key", flags.Lookup("api-key"))
	bindConfig("cdn_url", flags.Lookup("cdn-url"))
	bindConfig("api_url", flags.Lookup("api-url"))
	bindConfig("timeout", flags.Lookup("timeout"))
	bindConfig("proxy", flags.Lookup("proxy"))
	bindConfig("limit_rate", flags.Lookup("limit-rate"))
	bindConfig("quiet", flags.Lookup("quiet"))
	bindConfig("debug", flags.Lookup("debug"))
	bindConfig("log_level", flags.Lookup("log-level"))
	bindConfig("log_file", flags.Lookup("log-file"))

	contentCmd.Flags().StringP("output", "o", "", "Write content to this file instead of stdout")
	metadataCmd.Flags().StringSlice("field", nil, "Metadata field to request; repeatable (default: service defaults)")

	storeCmd.Flags().String("location", client.DefaultLocation, "Storage location: s3, gcs, azure, rackspace, dropbox")
	storeCmd.Flags().String("filename", "", "Stored filename (default: base name of the source)")
	storeCmd.Flags().String("mimetype", "", "MIME type of the stored file")
	storeCmd.Flags().String("path", "", "Path inside the storage container")
	storeCmd.Flags().String("container", "", "Storage container or bucket")
	storeCmd.Flags().String("access", "", "Access level: public or private")
	storeCmd.Flags().Bool("base64decode", false, "Decode base64 content before storing")

	rootCmd.AddCommand(urlCmd, contentCmd, metadataCmd, downloadCmd, storeCmd)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
