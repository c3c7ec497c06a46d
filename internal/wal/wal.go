// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package wal implements the write-ahead log: every mutating operation is
// framed, appended, and (per the configured durability policy) fsynced
// before the dispatcher acknowledges the write back to the caller (spec
// component H). Entry framing is [len uint32][payload][crc uint32], where
// payload is the encoding/gob encoding of the entry's Offset, TS and Op;
// offset and timestamp are not stored as raw fixed-width fields.
package wal

import (
	"bufio"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"synap/internal/synaperr"
)

// Durability selects how aggressively the WAL flushes to stable storage.
// Modeled as a per-writer setting rather than a single global mode so a
// caller can request a stronger guarantee on one write without paying
// group-commit latency on every write (DESIGN.md Open Question decision).
type Durability int

const (
	// DurabilityNone is handled by Append exactly like DurabilityBuffered:
	// the entry is flushed to the OS write buffer before Append returns.
	DurabilityNone Durability = iota
	// DurabilityBuffered guarantees the entry reached the OS write buffer
	// (via Append) but fsyncs only on the background policy's cadence.
	DurabilityBuffered
	// DurabilitySynced blocks the caller until the entry is fsynced.
	DurabilitySynced
)

// FsyncPolicy controls the background fsync cadence.
type FsyncPolicy int

const (
	FsyncAlways FsyncPolicy = iota
	FsyncPeriodic
	FsyncNever
)

// DefaultFsyncInterval is the periodic policy's default cadence (spec §4.6).
const DefaultFsyncInterval = 1000 * time.Millisecond

// Entry is one logged operation.
type Entry struct {
	Offset uint64
	TS     int64
	Op     []byte
}

// Options configures a Log.
type Options struct {
	Dir         string
	FsyncPolicy FsyncPolicy
	MaxSizeMB   int
}

// Log is an append-only, crash-safe operation log backed by a directory of
// rotating segment files.
type Log struct {
	mu           sync.Mutex
	dir          string
	fsyncPolicy  FsyncPolicy
	maxSizeBytes int64

	file       *os.File
	w          *bufio.Writer
	nextOffset uint64
	curSize    int64
	segmentIdx int
}

// Open creates (or reopens) a WAL in dir, starting the offset sequence at
// startOffset (the caller — engine.New — supplies one past the last offset
// ReadAll finds in existing segments, or 0 for a brand new log).
func Open(opts Options, startOffset uint64) (*Log, error) {
	if opts.Dir == "" {
		return nil, synaperr.New(synaperr.KindInvalidValue, "wal: dir is required")
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, err
	}
	maxSize := int64(opts.MaxSizeMB) * 1024 * 1024
	if maxSize <= 0 {
		maxSize = 256 * 1024 * 1024
	}
	l := &Log{
		dir:          opts.Dir,
		fsyncPolicy:  opts.FsyncPolicy,
		maxSizeBytes: maxSize,
		nextOffset:   startOffset,
	}
	if err := l.openSegment(0); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Log) segmentPath(idx int) string {
	return filepath.Join(l.dir, fmt.Sprintf("wal-%08d.log", idx))
}

func (l *Log) openSegment(idx int) error {
	f, err := os.OpenFile(l.segmentPath(idx), os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	l.file = f
	l.w = bufio.NewWriter(f)
	l.segmentIdx = idx
	l.curSize = info.Size()
	return nil
}

// Append serializes op, frames it, and appends it to the current segment,
// rotating to a new segment first if MaxSizeMB would be exceeded. It
// returns the entry's assigned offset. Durability governs whether Append
// blocks for an fsync before returning.
func (l *Log) Append(op []byte, durability Durability) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	offset := l.nextOffset
	entry := Entry{Offset: offset, TS: time.Now().UnixNano(), Op: op}
	framed, err := frame(entry)
	if err != nil {
		return 0, err
	}

	if l.curSize+int64(len(framed)) > l.maxSizeBytes {
		if err := l.rotateLocked(); err != nil {
			return 0, err
		}
	}

	if _, err := l.w.Write(framed); err != nil {
		return 0, err
	}
	l.curSize += int64(len(framed))
	l.nextOffset++

	if durability == DurabilitySynced || l.fsyncPolicy == FsyncAlways {
		if err := l.flushAndSyncLocked(); err != nil {
			return 0, err
		}
	} else if err := l.w.Flush(); err != nil {
		return 0, err
	}
	return offset, nil
}

func (l *Log) rotateLocked() error {
	if err := l.flushAndSyncLocked(); err != nil {
		return err
	}
	if err := l.file.Close(); err != nil {
		return err
	}
	return l.openSegment(l.segmentIdx + 1)
}

func (l *Log) flushAndSyncLocked() error {
	if err := l.w.Flush(); err != nil {
		return err
	}
	return l.file.Sync()
}

// Sync forces a flush and fsync of the current segment, used by the
// periodic fsync policy's background job.
func (l *Log) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.flushAndSyncLocked()
}

// NextOffset reports the offset that would be assigned to the next
// appended entry.
func (l *Log) NextOffset() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nextOffset
}

// Close flushes and closes the current segment.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.w.Flush(); err != nil {
		return err
	}
	return l.file.Close()
}

func frame(e Entry) ([]byte, error) {
	var body struct {
		Offset uint64
		TS     int64
		Op     []byte
	}
	body.Offset, body.TS, body.Op = e.Offset, e.TS, e.Op

	payload, err := gobEncode(body)
	if err != nil {
		return nil, err
	}
	crc := crc32.ChecksumIEEE(payload)

	buf := make([]byte, 4+len(payload)+4)
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(payload)))
	copy(buf[4:4+len(payload)], payload)
	binary.BigEndian.PutUint32(buf[4+len(payload):], crc)
	return buf, nil
}

func gobEncode(v any) ([]byte, error) {
	var buf writerBuf
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.data, nil
}

type writerBuf struct{ data []byte }

func (w *writerBuf) Write(p []byte) (int, error) {
	w.data = append(w.data, p...)
	return len(p), nil
}

// ReadAll scans every segment file in dir in order and returns every
// entry whose checksum validates, stopping at the first corrupt or
// truncated trailing entry (spec §4.6: "a truncated trailing entry ...
// is discarded, not an error").
func ReadAll(dir string) ([]Entry, error) {
	segments, err := segmentPaths(dir)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for _, path := range segments {
		segEntries, truncated, err := readSegment(path)
		if err != nil {
			return nil, err
		}
		entries = append(entries, segEntries...)
		if truncated {
			break
		}
	}
	return entries, nil
}

func segmentPaths(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "wal-*.log"))
	if err != nil {
		return nil, err
	}
	return matches, nil
}

func readSegment(path string) ([]Entry, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	var entries []Entry
	r := bufio.NewReader(f)
	for {
		lenBuf := make([]byte, 4)
		if _, err := io.ReadFull(r, lenBuf); err != nil {
			if err == io.EOF {
				return entries, false, nil
			}
			return entries, true, nil
		}
		length := binary.BigEndian.Uint32(lenBuf)
		payload := make([]byte, length)
		if _, err := io.ReadFull(r, payload); err != nil {
			return entries, true, nil
		}
		crcBuf := make([]byte, 4)
		if _, err := io.ReadFull(r, crcBuf); err != nil {
			return entries, true, nil
		}
		wantCRC := binary.BigEndian.Uint32(crcBuf)
		if crc32.ChecksumIEEE(payload) != wantCRC {
			return entries, true, nil
		}
		var body struct {
			Offset uint64
			TS     int64
			Op     []byte
		}
		dec := gob.NewDecoder(&readerBuf{data: payload})
		if err := dec.Decode(&body); err != nil {
			return entries, true, nil
		}
		entries = append(entries, Entry{Offset: body.Offset, TS: body.TS, Op: body.Op})
	}
}

type readerBuf struct {
	data []byte
	pos  int
}

func (r *readerBuf) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}
