// heifdump prints the box tree and item table of a HEIF file.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ugparu/goheif"
	"github.com/ugparu/goheif/heifio"
	"github.com/ugparu/goheif/utils/logger"
)

var rootCmd = &cobra.Command{
	Use:   "heifdump <file.heic>",
	Short: "Dump the ISOBMFF box tree of a HEIF still image",
	Long: `heifdump parses a HEIF container and prints its box tree, and
optionally the per-item property table and EXIF payload.

Examples:
  # Dump the box tree
  heifdump photo.heic

  # Show each item with its resolved properties
  heifdump photo.heic --properties

  # Extract the raw EXIF blob
  heifdump photo.heic --exif > photo.exif`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDump(args[0])
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.Flags().String("log-level", "warning", "log level (trace, debug, info, warning, error)")
	rootCmd.Flags().Int("max-depth", 0, "limit tree depth, 0 for unbounded")
	rootCmd.Flags().Bool("properties", false, "print the per-item property table")
	rootCmd.Flags().Bool("exif", false, "write the raw EXIF payload to stdout")

	_ = viper.BindPFlags(rootCmd.Flags())
	viper.SetEnvPrefix("HEIFDUMP")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func runDump(path string) error {
	lvl, err := logrus.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		return fmt.Errorf("bad log level: %w", err)
	}
	logger.Init(lvl)

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	demux := goheif.NewDemuxer(f)
	if err = demux.ReadHeader(); err != nil {
		return err
	}

	if viper.GetBool("exif") {
		exif, err := demux.Exif()
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(exif)
		return err
	}

	for _, atom := range demux.Atoms() {
		heifio.FprintAtom(os.Stdout, atom, viper.GetInt("max-depth"))
	}

	if viper.GetBool("properties") {
		fmt.Println()
		if err = printItems(demux); err != nil {
			return err
		}
	}
	return nil
}

func printItems(demux *goheif.Demuxer) error {
	items, err := demux.Items()
	if err != nil {
		return err
	}
	primary, _ := demux.PrimaryItem()
	for _, it := range items {
		marker := " "
		if primary != nil && it.ID == primary.ID {
			marker = "*"
		}
		fmt.Printf("%s item %d type=%v hidden=%v\n", marker, it.ID, it.Type(), it.Hidden())
		if w, h, ok := it.SpatialExtents(); ok {
			fmt.Printf("    extents %dx%d\n", w, h)
		}
		for _, prop := range it.Properties {
			fmt.Printf("    property %v\n", prop.Tag())
		}
		for _, ref := range it.References() {
			fmt.Printf("    ref %v -> %v\n", ref.Type, ref.ToIDs)
		}
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
