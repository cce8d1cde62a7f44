package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/sw33tLie/fruitjar/internal/utils"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

const (
	LOGO = `	  __            _ _   _
	 / _|_ __ _   _(_) |_(_) __ _ _ __
	| |_| '__| | | | | __| |/ _' | '__|
	|  _| |  | |_| | | |_| | (_| | |
	|_| |_|   \__,_|_|\__/ |\__,_|_|
	                   |__/

`
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fruitjar",
	Short: "Collect fruits into a jar, with undo, grouping and nutrition totals.",
	Long: LOGO + `fruitjar loads a fruit catalog from a JSON endpoint (or a bundled fallback),
lets you fill a jar with fruits and keeps the full undo/redo history of the jar
across sessions.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.fruitjar.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("proxy", "", "", "HTTP Proxy for catalog requests (Example: http://127.0.0.1:8080)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
	rootCmd.PersistentFlags().String("dbpath", "", "Path to the jar SQLite DB file (default: ~/.config/fruitjar/jar.sqlite)")
	rootCmd.PersistentFlags().Bool("ephemeral", false, "Keep the jar in memory only, nothing is read or saved")
	rootCmd.PersistentFlags().String("catalog-url", "", "Catalog JSON endpoint (overrides catalog.url)")
	rootCmd.PersistentFlags().String("catalog-file", "", "Read the catalog from a local JSON file instead of the endpoint")

	viper.BindPFlag("catalog.url", rootCmd.PersistentFlags().Lookup("catalog-url"))
	viper.BindPFlag("catalog.file", rootCmd.PersistentFlags().Lookup("catalog-file"))
	viper.BindPFlag("catalog.proxy", rootCmd.PersistentFlags().Lookup("proxy"))
	viper.BindPFlag("jar.dbpath", rootCmd.PersistentFlags().Lookup("dbpath"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// A .env file in the working directory is optional.
	if err := godotenv.Load(".env"); err == nil {
		utils.Log.Debugf("Loaded environment variables from .env")
	}

	setConfigDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".fruitjar")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	viper.BindEnv("catalog.url", "FRUITJAR_CATALOG_URL", "API_URL", "TARGET_URL")

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create it with defaults.
			home, _ := homedir.Dir()
			configPath := filepath.Join(home, ".fruitjar.yaml")
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				fmt.Printf("Error creating config file: %s", err)
			}
		}
	}

	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	if err := utils.SetLogLevel(levelString); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func setConfigDefaults() {
	viper.SetDefault("catalog.url", "")
	viper.SetDefault("catalog.file", "")
	viper.SetDefault("catalog.proxy", "")
	viper.SetDefault("catalog.timeout", "10s")
	viper.SetDefault("catalog.retries", 2)
	viper.SetDefault("catalog.stale", "5m")
	viper.SetDefault("jar.dbpath", "")
	viper.SetDefault("jar.strict", false)
	viper.SetDefault("server.listen", "127.0.0.1:8080")
	viper.SetDefault("server.username", "")
	viper.SetDefault("server.password", "")
}
