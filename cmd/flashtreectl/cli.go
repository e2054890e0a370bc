package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vorteil/flashtree/pkg/elog"
)

var log elog.Logger

var (
	flagVerbose bool
	flagDebug   bool
	flagState   string
	flagConfig  string
)

func commandInit() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "d", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to a flashtreectl.yaml config file")
	rootCmd.PersistentFlags().StringVarP(&flagState, "state", "s", "flashtree.state", "path to the persisted tree snapshot")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		logger := &elog.CLI{}
		logrus.SetFormatter(logger)
		if flagDebug {
			logger.IsDebug = true
			logger.IsVerbose = true
		} else if flagVerbose {
			logger.IsVerbose = true
		}
		log = logger

		initConfig(flagConfig, log)
		return nil
	}

	rootCmd.AddCommand(statCmd)
	rootCmd.AddCommand(mkdirCmd)
	rootCmd.AddCommand(mkfileCmd)
	rootCmd.AddCommand(mkdataCmd)
	rootCmd.AddCommand(markBadCmd)
	rootCmd.AddCommand(resetCmd)
}

var rootCmd = &cobra.Command{
	Use:   "flashtreectl",
	Short: "Inspect and drive a flash-tree device state file",
	Long: `flashtreectl is a demonstration CLI over the flashtree device index: it
mutates and persists a tree snapshot, the same way a mounted device would
across mutations, without needing a real flash chip underneath it.`,
}

var statCmd = &cobra.Command{
	Use:   "stat",
	Short: "Print bucket and list counters for the state file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openOrCreateDevice(flagState)
		if err != nil {
			return err
		}
		fmt.Printf("volume:  %s\n", d.Attrs.VolumeID)
		fmt.Printf("dirs:    %d\n", d.Tree.DirCount())
		fmt.Printf("files:   %d\n", d.Tree.FileCount())
		fmt.Printf("data:    %d\n", d.Tree.DataCount())
		fmt.Printf("erased:  %d\n", d.Tree.ErasedCount())
		fmt.Printf("bad:     %d\n", d.Tree.BadCount())
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the state file to an empty device",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openOrCreateDevice(flagState)
		if err != nil {
			return err
		}
		d.Tree.Reset()
		log.Infof("reset to empty device")
		return saveDevice(d, flagState)
	},
}

var (
	flagBlock    uint16
	flagParent   uint16
	flagSerial   uint16
	flagChecksum uint16
	flagLength   uint32
)

func addNodeFlags(cmd *cobra.Command) {
	cmd.Flags().Uint16Var(&flagBlock, "block", 0, "block number this node describes")
	cmd.Flags().Uint16Var(&flagParent, "parent", 0, "parent serial (0 is the root sentinel)")
	cmd.Flags().Uint16Var(&flagSerial, "serial", 0, "this node's own serial number")
}

var mkdirCmd = &cobra.Command{
	Use:   "mkdir",
	Short: "Insert a directory node into the state file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openOrCreateDevice(flagState)
		if err != nil {
			return err
		}
		idx, err := d.Tree.AllocSlot()
		if err != nil {
			return err
		}
		d.Tree.InsertDir(idx, flagBlock, flagChecksum, flagParent, flagSerial)
		log.Infof("inserted dir serial=%d at slot %d", flagSerial, idx)
		return saveDevice(d, flagState)
	},
}

var mkfileCmd = &cobra.Command{
	Use:   "mkfile",
	Short: "Insert a file node into the state file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openOrCreateDevice(flagState)
		if err != nil {
			return err
		}
		idx, err := d.Tree.AllocSlot()
		if err != nil {
			return err
		}
		d.Tree.InsertFile(idx, flagBlock, flagChecksum, flagParent, flagSerial, flagLength)
		log.Infof("inserted file serial=%d at slot %d", flagSerial, idx)
		return saveDevice(d, flagState)
	},
}

var mkdataCmd = &cobra.Command{
	Use:   "mkdata",
	Short: "Insert a data node into the state file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openOrCreateDevice(flagState)
		if err != nil {
			return err
		}
		idx, err := d.Tree.AllocSlot()
		if err != nil {
			return err
		}
		d.Tree.InsertData(idx, flagBlock, flagParent, flagSerial, flagLength)
		log.Infof("inserted data block=%d under parent serial=%d at slot %d", flagBlock, flagParent, idx)
		return saveDevice(d, flagState)
	},
}

var markBadCmd = &cobra.Command{
	Use:   "mark-bad",
	Short: "Move an erased block to the bad list",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openOrCreateDevice(flagState)
		if err != nil {
			return err
		}
		if err := d.Tree.MarkErasedBlockBad(flagBlock); err != nil {
			return err
		}
		log.Infof("marked block %d bad", flagBlock)
		return saveDevice(d, flagState)
	},
}

func init() {
	addNodeFlags(mkdirCmd)
	addNodeFlags(mkfileCmd)
	addNodeFlags(mkdataCmd)
	mkdirCmd.Flags().Uint16Var(&flagChecksum, "checksum", 0, "directory checksum")
	mkfileCmd.Flags().Uint16Var(&flagChecksum, "checksum", 0, "file checksum")
	mkfileCmd.Flags().Uint32Var(&flagLength, "length", 0, "file length in bytes")
	mkdataCmd.Flags().Uint32Var(&flagLength, "length", 0, "data block length in bytes")
	markBadCmd.Flags().Uint16Var(&flagBlock, "block", 0, "block number currently on the erased list")
}
