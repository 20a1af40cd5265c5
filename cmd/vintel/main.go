// cmd/vintel/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/signalnine/vintel/internal/agent"
	"github.com/signalnine/vintel/internal/chatparser"
	"github.com/signalnine/vintel/internal/config"
	"github.com/signalnine/vintel/internal/intel"
	"github.com/signalnine/vintel/internal/lookup"
	"github.com/signalnine/vintel/internal/output"
	"github.com/signalnine/vintel/internal/starmap"
	"github.com/signalnine/vintel/internal/watcher"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "vintel",
	Short: "EVE intel channel watcher",
	Long: `vintel follows the chat logs of your intel channels, marks the systems
they report on a region map and warns when hostiles are close to your
characters.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the chat logs and report intel",
	RunE:  runWatch,
}

var parseCmd = &cobra.Command{
	Use:   "parse <chatlog>",
	Short: "Parse one chat log and print its messages",
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

var kosCmd = &cobra.Command{
	Use:   "kos <name>...",
	Short: "Check characters against the KOS list",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runKOS,
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "config file (default: $HOME/.vintel/vintel.yaml)")
	pf.String("log-dir", "", "directory of the chat logs")
	pf.StringSlice("room", nil, "intel room to follow (repeatable)")
	pf.String("region", "", "region whose map is loaded")
	pf.String("map-file", "", "map file, overrides --region")
	cobra.CheckErr(viper.BindPFlag("log_dir", pf.Lookup("log-dir")))
	cobra.CheckErr(viper.BindPFlag("rooms", pf.Lookup("room")))
	cobra.CheckErr(viper.BindPFlag("region", pf.Lookup("region")))
	cobra.CheckErr(viper.BindPFlag("map_file", pf.Lookup("map-file")))

	wf := watchCmd.Flags()
	wf.String("listen", "", "address of the status API (empty disables it)")
	wf.Int("alarm-distance", 0, "jumps within which located characters are warned")
	wf.Bool("bell", true, "ring the terminal bell on sounds")
	cobra.CheckErr(viper.BindPFlag("listen_addr", wf.Lookup("listen")))
	cobra.CheckErr(viper.BindPFlag("alarm_distance", wf.Lookup("alarm-distance")))

	kosCmd.Flags().Bool("only-kos", false, "print only the KOS names")

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(kosCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(filepath.Join(home, ".vintel"))
		viper.AddConfigPath(".")
		viper.SetConfigName("vintel")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("VINTEL")
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err == nil {
		log.Printf("Using config %s", viper.ConfigFileUsed())
	}
}

// loadConfig reads the config file viper found, then lets flags and
// VINTEL_* variables override it. fill runs last, before validation.
func loadConfig(fill func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Read(viper.ConfigFileUsed())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if viper.IsSet("log_dir") {
		cfg.LogDir = viper.GetString("log_dir")
	}
	if viper.IsSet("rooms") {
		cfg.Rooms = viper.GetStringSlice("rooms")
	}
	if viper.IsSet("region") {
		cfg.Region = viper.GetString("region")
	}
	if viper.IsSet("map_file") {
		cfg.MapFile = viper.GetString("map_file")
	}
	if viper.IsSet("listen_addr") {
		cfg.ListenAddr = viper.GetString("listen_addr")
	}
	if viper.IsSet("alarm_distance") {
		cfg.AlarmDistance = viper.GetInt("alarm_distance")
	}
	if fill != nil {
		fill(cfg)
	}

	if err := cfg.Finish(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadMap(cfg *config.Config) (*starmap.Map, error) {
	m, err := starmap.LoadMap(cfg.MapPath())
	if err != nil {
		return nil, fmt.Errorf("load map: %w", err)
	}
	log.Printf("Loaded %s: %d systems", cfg.MapPath(), m.Len())
	return m, nil
}

func runParse(cmd *cobra.Command, args []string) error {
	path := args[0]
	if !watcher.IsChatLog(path) {
		return fmt.Errorf("%s is not named like a chat log", path)
	}
	room := watcher.RoomFromFilename(path)

	cfg, err := loadConfig(func(cfg *config.Config) {
		if cfg.LogDir == "" {
			cfg.LogDir = filepath.Dir(path)
		}
		cfg.Rooms = append(cfg.Rooms, room)
	})
	if err != nil {
		return err
	}
	m, err := loadMap(cfg)
	if err != nil {
		return err
	}

	term := output.NewTerminal(cmd.OutOrStdout(), false)
	tracker := intel.New(m, term, intel.Options{AlarmDistance: cfg.AlarmDistance})
	in := agent.NewIngester(chatparser.New(m, cfg.HistoryLimit), cfg.Rooms, cfg.LocalRooms)
	for _, msg := range in.FileChanged(path, room) {
		tracker.Handle(msg)
	}
	return nil
}

func runKOS(cmd *cobra.Command, args []string) error {
	cfg, err := config.Read(viper.ConfigFileUsed())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// only the lookup endpoints matter here, so a config without rooms
	// or map is fine
	if err := cfg.Defaults(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	onlyKOS, _ := cmd.Flags().GetBool("only-kos")

	var names []string
	for _, arg := range args {
		for _, n := range strings.Split(arg, ",") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	client := lookup.NewKOSClient(cfg.KOSEndpoints, lookup.NewEveGate(cfg.ESIURL, cfg.ImageURL, nil))
	results, err := client.Check(ctx, names)
	if err != nil {
		if lookup.IsUnavailable(err) {
			return fmt.Errorf("KOS service unreachable: %w", err)
		}
		return err
	}
	text := lookup.ResultToText(results, onlyKOS)
	if text == "" {
		text = "Noone KOS"
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
