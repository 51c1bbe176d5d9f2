package lshindex

import (
	"bytes"
	"encoding/binary"
	"io"
	"io/ioutil"
	"sync/atomic"

	"github.com/golang/snappy"
	"github.com/pkg/errors"

	"github.com/longread/biocore/bioerr"
)

// on-disk layout (little-endian throughout), matching the original
// serialization format byte for byte:
//
//	int64   totalIDs
//	int64   numberOfTables (nms)
//	nms * int64   rows-per-table (one per table)
//	nms * int64   registersPerTable
//	uint8   isBottomKOnly
//	uint8   isLocked
//	for each table i, for each row j:
//	  uint64 numberOfBuckets
//	  for each bucket:
//	    uint64 numberOfIDs
//	    uint64 key
//	    numberOfIDs * uint64 ids

func writeInt64(w io.Writer, v int64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	_, err := w.Write(buf[:])
	return err
}

func readInt64(r io.Reader) (int64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(buf[:])), nil
}

func writeUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func writeUint8(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	return err
}

func readUint8(r io.Reader) (uint8, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// Write serializes the index to w in the layout documented above.
func (idx *Index) Write(w io.Writer) error {
	if err := writeInt64(w, atomic.LoadInt64(&idx.totalIDs)); err != nil {
		return bioerr.E(bioerr.IO, "lshindex: write totalIDs", err)
	}
	nms := int64(len(idx.tables))
	if err := writeInt64(w, nms); err != nil {
		return bioerr.E(bioerr.IO, "lshindex: write table count", err)
	}
	for _, row := range idx.tables {
		if err := writeInt64(w, int64(len(row))); err != nil {
			return bioerr.E(bioerr.IO, "lshindex: write row count", err)
		}
	}
	for _, r := range idx.registersPerTable {
		if err := writeInt64(w, r); err != nil {
			return bioerr.E(bioerr.IO, "lshindex: write registersPerTable", err)
		}
	}
	var isBottomK uint8
	if idx.isBottomKOnly {
		isBottomK = 1
	}
	var isLocked uint8
	if idx.locked {
		isLocked = 1
	}
	if err := writeUint8(w, isBottomK); err != nil {
		return bioerr.E(bioerr.IO, "lshindex: write isBottomK flag", err)
	}
	if err := writeUint8(w, isLocked); err != nil {
		return bioerr.E(bioerr.IO, "lshindex: write isLocked flag", err)
	}
	for _, row := range idx.tables {
		for _, m := range row {
			if m.locked {
				m.mu.Lock()
			}
			if err := writeUint64(w, uint64(len(m.buckets))); err != nil {
				m.maybeUnlock()
				return bioerr.E(bioerr.IO, "lshindex: write bucket count", err)
			}
			for key, ids := range m.buckets {
				if err := writeUint64(w, uint64(len(ids))); err != nil {
					m.maybeUnlock()
					return bioerr.E(bioerr.IO, "lshindex: write id count", err)
				}
				if err := writeUint64(w, key); err != nil {
					m.maybeUnlock()
					return bioerr.E(bioerr.IO, "lshindex: write key", err)
				}
				for _, id := range ids {
					if err := writeUint64(w, uint64(id)); err != nil {
						m.maybeUnlock()
						return bioerr.E(bioerr.IO, "lshindex: write id", err)
					}
				}
			}
			m.maybeUnlock()
		}
	}
	return nil
}

func (m *innerMap) maybeUnlock() {
	if m.locked {
		m.mu.Unlock()
	}
}

// Read deserializes an index previously written by Write. sketchSize must
// be supplied by the caller since it is not part of the on-disk layout (the
// original format, which this mirrors, omits it too; callers are expected
// to know M from context).
func Read(r io.Reader, sketchSize int64) (*Index, error) {
	totalIDs, err := readInt64(r)
	if err != nil {
		return nil, bioerr.E(bioerr.IO, "lshindex: read totalIDs", err)
	}
	nms, err := readInt64(r)
	if err != nil {
		return nil, bioerr.E(bioerr.IO, "lshindex: read table count", err)
	}
	rowCounts := make([]int64, nms)
	for i := range rowCounts {
		v, err := readInt64(r)
		if err != nil {
			return nil, bioerr.E(bioerr.IO, "lshindex: read row count", err)
		}
		rowCounts[i] = v
	}
	registersPerTable := make([]int64, nms)
	for i := range registersPerTable {
		v, err := readInt64(r)
		if err != nil {
			return nil, bioerr.E(bioerr.IO, "lshindex: read registersPerTable", err)
		}
		registersPerTable[i] = v
	}
	isBottomK, err := readUint8(r)
	if err != nil {
		return nil, bioerr.E(bioerr.IO, "lshindex: read isBottomK flag", err)
	}
	isLocked, err := readUint8(r)
	if err != nil {
		return nil, bioerr.E(bioerr.IO, "lshindex: read isLocked flag", err)
	}
	idx := &Index{
		sketchSize:        sketchSize,
		totalIDs:          totalIDs,
		registersPerTable: registersPerTable,
		isBottomKOnly:     isBottomK != 0,
		locked:            isLocked != 0,
	}
	for i := int64(0); i < nms; i++ {
		row := make([]*innerMap, rowCounts[i])
		for j := range row {
			m := newInnerMap(idx.locked)
			nBuckets, err := readUint64(r)
			if err != nil {
				return nil, bioerr.E(bioerr.IO, "lshindex: read bucket count", err)
			}
			for b := uint64(0); b < nBuckets; b++ {
				nIDs, err := readUint64(r)
				if err != nil {
					return nil, bioerr.E(bioerr.IO, "lshindex: read id count", err)
				}
				key, err := readUint64(r)
				if err != nil {
					return nil, bioerr.E(bioerr.IO, "lshindex: read key", err)
				}
				ids := make([]ID, nIDs)
				for k := range ids {
					v, err := readUint64(r)
					if err != nil {
						return nil, bioerr.E(bioerr.IO, "lshindex: read id", err)
					}
					ids[k] = ID(v)
				}
				m.buckets[key] = ids
			}
			row[j] = m
		}
		idx.tables = append(idx.tables, row)
	}
	return idx, nil
}

// WriteSnappy writes the index in the same layout as Write, block-compressed
// with snappy: useful for large indexes whose bucket maps compress well, the
// same role snappy plays for on-disk sort-shard payloads elsewhere in this
// codebase.
func (idx *Index) WriteSnappy(w io.Writer) error {
	var buf bytes.Buffer
	if err := idx.Write(&buf); err != nil {
		return errors.Wrap(err, "lshindex: serialize before snappy compression")
	}
	compressed := snappy.Encode(nil, buf.Bytes())
	if err := writeInt64(w, int64(len(compressed))); err != nil {
		return errors.Wrap(err, "lshindex: write snappy frame length")
	}
	if _, err := w.Write(compressed); err != nil {
		return errors.Wrap(err, "lshindex: write snappy frame")
	}
	return nil
}

// ReadSnappy reads an index previously written by WriteSnappy.
func ReadSnappy(r io.Reader, sketchSize int64) (*Index, error) {
	n, err := readInt64(r)
	if err != nil {
		return nil, errors.Wrap(err, "lshindex: read snappy frame length")
	}
	compressed, err := ioutil.ReadAll(io.LimitReader(r, n))
	if err != nil {
		return nil, errors.Wrap(err, "lshindex: read snappy frame")
	}
	raw, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, errors.Wrap(err, "lshindex: snappy decode")
	}
	idx, err := Read(bytes.NewReader(raw), sketchSize)
	if err != nil {
		return nil, errors.Wrap(err, "lshindex: deserialize after snappy decompression")
	}
	return idx, nil
}
