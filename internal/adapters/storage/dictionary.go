package storage

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/lcalzada-xor/wkarma/internal/core/domain"
	"github.com/lcalzada-xor/wkarma/internal/core/ports"
)

// checkpointStride is the number of SSIDs between two indexed file offsets.
const checkpointStride = 256

var ErrDictionaryClosed = errors.New("dictionary closed")

// FileDictionary streams SSIDs from a text file, one per line. Blank lines
// are ignored and lines longer than an SSID are truncated. Only a sparse
// offset index is kept in memory, so a batch read seeks to the nearest
// checkpoint and scans at most checkpointStride lines before the batch.
type FileDictionary struct {
	mu          sync.Mutex
	f           *os.File
	checkpoints []int64 // offset of SSID i*checkpointStride
	count       int
}

// OpenFileDictionary indexes path.
func OpenFileDictionary(path string) (*FileDictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dictionary: %w", err)
	}
	d := &FileDictionary{f: f}
	if err := d.index(); err != nil {
		f.Close()
		return nil, err
	}
	return d, nil
}

func (d *FileDictionary) index() error {
	r := bufio.NewReader(d.f)
	var offset int64
	for {
		line, err := r.ReadString('\n')
		if strings.TrimSpace(line) != "" {
			if d.count%checkpointStride == 0 {
				d.checkpoints = append(d.checkpoints, offset)
			}
			d.count++
		}
		offset += int64(len(line))
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("index dictionary: %w", err)
		}
	}
}

// Len returns the number of SSIDs in the file.
func (d *FileDictionary) Len() int {
	return d.count
}

// ReadBatch returns up to count SSIDs starting at index start. A short batch
// means the end of the file.
func (d *FileDictionary) ReadBatch(start, count int) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return nil, ErrDictionaryClosed
	}
	if start < 0 || count <= 0 || start >= d.count {
		return nil, nil
	}

	cp := start / checkpointStride
	if _, err := d.f.Seek(d.checkpoints[cp], io.SeekStart); err != nil {
		return nil, err
	}
	skip := start - cp*checkpointStride

	out := make([]string, 0, count)
	sc := bufio.NewScanner(d.f)
	for sc.Scan() && len(out) < count {
		ssid := strings.TrimSpace(sc.Text())
		if ssid == "" {
			continue
		}
		if skip > 0 {
			skip--
			continue
		}
		if len(ssid) > domain.MaxSSIDLen {
			ssid = ssid[:domain.MaxSSIDLen]
		}
		out = append(out, ssid)
	}
	return out, sc.Err()
}

func (d *FileDictionary) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	return err
}

var _ ports.SSIDDictionary = (*FileDictionary)(nil)
