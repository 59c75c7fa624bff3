// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package diskfile

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/engula-go/storekv/internal/base"
	"github.com/engula-go/storekv/sstable"
)

func TestWriterReaderRoundTripThroughSstBuilder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.sst")

	writer, err := CreateWriter(path)
	require.NoError(t, err)

	builder := sstable.NewSstBuilder(writer, sstable.WriterOptions{BlockSize: 64, Compression: sstable.SnappyCompression})
	for i := 0; i < 50; i++ {
		key := []byte{byte('a' + i/26), byte('a' + i%26)}
		builder.Add(base.Timestamp(1), key, []byte("value"))
	}
	n, err := builder.Finish()
	require.NoError(t, err)
	require.NoError(t, writer.Sync())
	require.NoError(t, writer.Close())

	reader, err := OpenReader(path)
	require.NoError(t, err)
	defer reader.Close()
	require.Equal(t, int64(n), reader.Size())

	table, err := sstable.OpenSstReader(reader, reader.Size(), nil)
	require.NoError(t, err)

	it, err := table.NewIterator()
	require.NoError(t, err)
	count := 0
	for it.Seek(0, nil); ; it.Next() {
		_, _, _, ok := it.Current()
		if !ok {
			break
		}
		count++
	}
	require.NoError(t, it.Error())
	require.Equal(t, 50, count)
}

func TestCreateWriterRejectsSecondExclusiveLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.sst")

	first, err := CreateWriter(path)
	require.NoError(t, err)
	defer first.Close()

	_, err = CreateWriter(path)
	require.Error(t, err)
}
