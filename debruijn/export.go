package debruijn

import (
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/pkg/errors"
)

// Export writes every node's (Kmer, Coverage, Out, In, Reads) tuple to w in
// insertion order, flate-compressed: a compact bulk dump for checkpointing
// or shipping a graph between stages, the same block-compression role flate
// plays for bgzf's underlying stream elsewhere in this codebase.
func (g *Graph) Export(w io.Writer, level int) error {
	fw, err := flate.NewWriter(w, level)
	if err != nil {
		return errors.Wrap(err, "debruijn: create flate writer")
	}
	var buf [28]byte
	for _, k := range g.order {
		n, ok := g.nodes[k]
		if !ok {
			continue
		}
		binary.LittleEndian.PutUint64(buf[0:8], n.Kmer)
		binary.LittleEndian.PutUint32(buf[8:12], n.Coverage)
		buf[12] = n.Out
		buf[13] = n.In
		binary.LittleEndian.PutUint64(buf[16:24], n.Reads)
		if _, err := fw.Write(buf[:24]); err != nil {
			fw.Close()
			return errors.Wrap(err, "debruijn: write node record")
		}
	}
	if err := fw.Close(); err != nil {
		return errors.Wrap(err, "debruijn: close flate writer")
	}
	return nil
}

// Import populates a fresh graph of width k from a stream written by Export.
func Import(r io.Reader, k int) (*Graph, error) {
	g, err := New(k)
	if err != nil {
		return nil, err
	}
	fr := flate.NewReader(r)
	defer fr.Close()
	var buf [24]byte
	for {
		if _, err := io.ReadFull(fr, buf[:]); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.Wrap(err, "debruijn: read node record")
		}
		kmer := binary.LittleEndian.Uint64(buf[0:8])
		n := g.getOrCreate(kmer)
		n.Coverage = binary.LittleEndian.Uint32(buf[8:12])
		n.Out = buf[12]
		n.In = buf[13]
		n.Reads = binary.LittleEndian.Uint64(buf[16:24])
	}
	return g, nil
}
