// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Command sstdump prints the entries (timestamp, key, value length) of a
// sorted table file built by sstable.SstBuilder, and can build such a file
// from stdin. It does not print the table's block layout.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/engula-go/storekv/internal/base"
	"github.com/engula-go/storekv/internal/diskfile"
	"github.com/engula-go/storekv/sstable"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sstdump <file>",
		Short: "Dump the contents of a sorted table file",
		Args:  cobra.ExactArgs(1),
		RunE:  runDump,
	}
	root.AddCommand(newBuildCmd())
	return root
}

func newBuildCmd() *cobra.Command {
	var blockSize int
	cmd := &cobra.Command{
		Use:   "build <file>",
		Short: "Build a sorted table file from key\\tts\\tvalue lines read from stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, args[0], blockSize)
		},
	}
	cmd.Flags().IntVar(&blockSize, "block-size", sstable.DefaultWriterOptions().BlockSize, "target data block size in bytes")
	return cmd
}

func runBuild(cmd *cobra.Command, path string, blockSize int) error {
	writer, err := diskfile.CreateWriter(path)
	if err != nil {
		return err
	}
	defer writer.Close()

	opts := sstable.DefaultWriterOptions()
	opts.BlockSize = blockSize
	builder := sstable.NewSstBuilder(writer, opts)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 3)
		if len(fields) != 3 {
			return fmt.Errorf("sstdump build: expected key\\tts\\tvalue, got %q", line)
		}
		ts, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return fmt.Errorf("sstdump build: invalid timestamp in %q: %w", line, err)
		}
		builder.Add(base.Timestamp(ts), []byte(fields[0]), []byte(fields[2]))
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	n, err := builder.Finish()
	if err != nil {
		return err
	}
	if err := writer.Sync(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s\n", n, path)
	return nil
}

func runDump(cmd *cobra.Command, args []string) error {
	path := args[0]
	reader, err := diskfile.OpenReader(path)
	if err != nil {
		return err
	}
	defer reader.Close()

	table, err := sstable.OpenSstReader(reader, reader.Size(), nil)
	if err != nil {
		return err
	}

	it, err := table.NewIterator()
	if err != nil {
		return err
	}

	w := tablewriter.NewWriter(cmd.OutOrStdout())
	w.SetHeader([]string{"timestamp", "key", "value bytes"})

	it.Seek(0, nil)
	for {
		ts, key, value, ok := it.Current()
		if !ok {
			break
		}
		w.Append([]string{fmt.Sprintf("%d", ts), fmt.Sprintf("%q", key), fmt.Sprintf("%d", len(value))})
		it.Next()
	}
	if err := it.Error(); err != nil {
		return err
	}
	w.Render()
	return nil
}
