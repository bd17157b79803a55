package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/couchkit/couchkit"
	"github.com/couchkit/couchkit/cluster"
)

const Version = "0.3.0"

var (
	rootCmd = &cobra.Command{
		Use:   "couchkit-cli",
		Short: "key-value and view operations against a couchkit cluster",
		Long: fmt.Sprintf(`couchkit-cli (v%s)

Issue key-value operations, stream view query results, and manage
design documents from the command line. Connection settings come from
flags or COUCHKIT_* environment variables (a .env file is honored).`, Version),
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("couchkit-cli v%s\n", Version)
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("nodes", "localhost:11300", "comma-separated list of node addresses")
	rootCmd.PersistentFlags().Int("timeout-ms", 2500, "per-operation timeout in milliseconds")
	rootCmd.PersistentFlags().Int("connect-timeout-ms", 5000, "dial timeout in milliseconds")
	rootCmd.PersistentFlags().String("cert", "", "path to a PEM bundle to enable TLS")

	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("couchkit")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// bindFlags makes every flag of the command readable through viper, so
// environment variables and flags resolve through one path.
func bindFlags(cmd *cobra.Command) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if err := viper.BindPFlags(cmd.InheritedFlags()); err != nil {
		return err
	}
	return viper.BindPFlags(cmd.Root().PersistentFlags())
}

func newBucket() (*couchkit.Bucket, error) {
	nodes := strings.Split(viper.GetString("nodes"), ",")
	for i := range nodes {
		nodes[i] = strings.TrimSpace(nodes[i])
	}

	opTimeout := time.Duration(viper.GetInt("timeout-ms")) * time.Millisecond

	transport, err := cluster.New(cluster.Config{
		Nodes:            nodes,
		OperationTimeout: opTimeout,
		ConnectTimeout:   time.Duration(viper.GetInt("connect-timeout-ms")) * time.Millisecond,
		CertPath:         viper.GetString("cert"),
		NewBreaker:       cluster.NewBreakerConfig(2, time.Minute, 30*time.Second),
	})
	if err != nil {
		return nil, err
	}

	cfg := couchkit.DefaultConfig()
	cfg.OperationTimeout = opTimeout
	return couchkit.NewBucket(transport, cfg), nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
