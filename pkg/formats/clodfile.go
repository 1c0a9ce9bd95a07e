package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/meshforge/clodmesh/pkg/clod"
)

// CLOD container errors.
var (
	ErrInvalidCLODMagic       = errors.New("invalid CLOD magic: expected 'CLOD'")
	ErrUnsupportedCLODVersion = errors.New("unsupported CLOD version")
	ErrUnknownCLODCodec       = errors.New("unknown CLOD codec")
	ErrTruncatedCLODData      = errors.New("truncated CLOD data")
)

// CLODVersion represents the .clod container version.
type CLODVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v CLODVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// CurrentCLODVersion is the container version written by WriteCLOD.
var CurrentCLODVersion = CLODVersion{Major: 1, Minor: 0}

// Codec identifies the payload compression of a .clod file.
type Codec uint8

// Payload codecs.
const (
	CodecNone Codec = 0 // payload stored uncompressed
	CodecLZ4  Codec = 1 // LZ4 block compression (fast)
	CodecZstd Codec = 2 // Zstandard compression (better ratio)
)

// String returns the codec name as used in config files and flags.
func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecLZ4:
		return "lz4"
	case CodecZstd:
		return "zstd"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(c))
	}
}

// ParseCodec maps a codec name to its Codec. The empty string selects
// CodecNone.
func ParseCodec(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "", "none", "raw":
		return CodecNone, nil
	case "lz4":
		return CodecLZ4, nil
	case "zstd", "zstandard":
		return CodecZstd, nil
	default:
		return CodecNone, fmt.Errorf("%w: %q", ErrUnknownCLODCodec, name)
	}
}

// CLOD is the on-disk continuous LOD set: the reordered full-detail
// mesh plus its collapse records. Codec reports the payload compression
// of the file the set was read from; WriteCLOD ignores it.
type CLOD struct {
	Positions []r3.Vec
	Indices   []int32
	Records   []clod.CollapseRecord
	Codec     Codec
}

// Mesh returns the full-detail mesh view of the set. Slices are shared,
// not copied.
func (c *CLOD) Mesh() *Mesh {
	return &Mesh{Positions: c.Positions, Indices: c.Indices}
}

// Walker returns a clod.Mesh positioned at full detail over the set's
// index buffer and records.
func (c *CLOD) Walker() (*clod.Mesh, error) {
	return clod.NewMesh(c.Indices, c.Records)
}

const clodMagic = "CLOD"

// Payloads beyond this are rejected before allocation so a corrupt
// header cannot drive a multi-gigabyte make.
const maxCLODPayload = 1 << 30

// clodHeader is the fixed 16-byte file header.
type clodHeader struct {
	Magic [4]byte
	Major uint8
	Minor uint8
	Codec uint8
	_     uint8
	USize uint32
	CSize uint32
}

// WriteCLOD encodes the set to w with the given payload codec. An LZ4
// payload that does not shrink is stored raw, marked by csize == usize.
func WriteCLOD(w io.Writer, c *CLOD, codec Codec) error {
	payload, err := encodeCLODPayload(c)
	if err != nil {
		return err
	}

	var body []byte
	switch codec {
	case CodecNone:
		body = payload
	case CodecLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(payload)))
		n, err := lz4.CompressBlock(payload, buf, nil)
		if err != nil {
			return fmt.Errorf("lz4 compression: %w", err)
		}
		if n == 0 || n >= len(payload) {
			body = payload // incompressible
		} else {
			body = buf[:n]
		}
	case CodecZstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return fmt.Errorf("zstd encoder: %w", err)
		}
		body = enc.EncodeAll(payload, nil)
		enc.Close()
	default:
		return fmt.Errorf("%w: %d", ErrUnknownCLODCodec, uint8(codec))
	}

	hdr := clodHeader{
		Major: CurrentCLODVersion.Major,
		Minor: CurrentCLODVersion.Minor,
		Codec: uint8(codec),
		USize: uint32(len(payload)),
		CSize: uint32(len(body)),
	}
	copy(hdr.Magic[:], clodMagic)
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("writing CLOD header: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("writing CLOD payload: %w", err)
	}
	return nil
}

// ReadCLOD decodes a .clod stream.
func ReadCLOD(r io.Reader) (*CLOD, error) {
	var hdr clodHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: reading header", ErrTruncatedCLODData)
	}
	if string(hdr.Magic[:]) != clodMagic {
		return nil, ErrInvalidCLODMagic
	}
	version := CLODVersion{Major: hdr.Major, Minor: hdr.Minor}
	if version.Major != CurrentCLODVersion.Major {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCLODVersion, version)
	}
	codec := Codec(hdr.Codec)
	if codec > CodecZstd {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCLODCodec, hdr.Codec)
	}
	if hdr.USize > maxCLODPayload || hdr.CSize > maxCLODPayload {
		return nil, fmt.Errorf("invalid CLOD payload sizes: usize=%d csize=%d", hdr.USize, hdr.CSize)
	}

	body := make([]byte, hdr.CSize)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("%w: reading payload", ErrTruncatedCLODData)
	}

	payload, err := decodeCLODBody(codec, body, int(hdr.USize))
	if err != nil {
		return nil, err
	}
	c, err := parseCLODPayload(payload)
	if err != nil {
		return nil, err
	}
	c.Codec = codec
	return c, nil
}

// decodeCLODBody undoes the payload compression. An LZ4 body whose size
// equals usize was stored raw by the incompressible fallback.
func decodeCLODBody(codec Codec, body []byte, usize int) ([]byte, error) {
	switch codec {
	case CodecNone:
		if len(body) != usize {
			return nil, fmt.Errorf("%w: stored payload is %d bytes, header says %d",
				ErrTruncatedCLODData, len(body), usize)
		}
		return body, nil

	case CodecLZ4:
		if len(body) == usize {
			return body, nil
		}
		payload := make([]byte, usize)
		n, err := lz4.UncompressBlock(body, payload)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompression: %w", err)
		}
		if n != usize {
			return nil, fmt.Errorf("lz4 decompression: got %d bytes, header says %d", n, usize)
		}
		return payload, nil

	case CodecZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decoder: %w", err)
		}
		defer dec.Close()
		payload, err := dec.DecodeAll(body, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decompression: %w", err)
		}
		if len(payload) != usize {
			return nil, fmt.Errorf("zstd decompression: got %d bytes, header says %d", len(payload), usize)
		}
		return payload, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownCLODCodec, uint8(codec))
}

// encodeCLODPayload serializes counts, positions, indices and records
// in little-endian order.
func encodeCLODPayload(c *CLOD) ([]byte, error) {
	var buf bytes.Buffer
	counts := [3]uint32{
		uint32(len(c.Positions)),
		uint32(len(c.Indices) / 3),
		uint32(len(c.Records)),
	}
	if err := binary.Write(&buf, binary.LittleEndian, counts); err != nil {
		return nil, fmt.Errorf("encoding CLOD counts: %w", err)
	}
	if err := binary.Write(&buf, binary.LittleEndian, c.Positions); err != nil {
		return nil, fmt.Errorf("encoding CLOD positions: %w", err)
	}
	if err := binary.Write(&buf, binary.LittleEndian, c.Indices); err != nil {
		return nil, fmt.Errorf("encoding CLOD indices: %w", err)
	}
	for i := range c.Records {
		rec := &c.Records[i]
		fixed := [4]int32{rec.VKeep, rec.VThrow, rec.NumVertices, rec.NumTriangles}
		if err := binary.Write(&buf, binary.LittleEndian, fixed); err != nil {
			return nil, fmt.Errorf("encoding CLOD record %d: %w", i, err)
		}
		if err := binary.Write(&buf, binary.LittleEndian, uint32(len(rec.Indices))); err != nil {
			return nil, fmt.Errorf("encoding CLOD record %d: %w", i, err)
		}
		if err := binary.Write(&buf, binary.LittleEndian, rec.Indices); err != nil {
			return nil, fmt.Errorf("encoding CLOD record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// parseCLODPayload parses a decompressed payload. Every count is checked
// against the bytes actually present before its buffer is allocated.
func parseCLODPayload(payload []byte) (*CLOD, error) {
	r := bytes.NewReader(payload)

	var counts [3]uint32
	if err := binary.Read(r, binary.LittleEndian, &counts); err != nil {
		return nil, fmt.Errorf("%w: reading counts", ErrTruncatedCLODData)
	}
	numVertices := int(counts[0])
	numTriangles := int(counts[1])
	numRecords := int(counts[2])

	if r.Len() < numVertices*3*8 {
		return nil, fmt.Errorf("%w: %d vertices declared", ErrTruncatedCLODData, numVertices)
	}
	c := &CLOD{Positions: make([]r3.Vec, numVertices)}
	if err := binary.Read(r, binary.LittleEndian, c.Positions); err != nil {
		return nil, fmt.Errorf("%w: reading positions", ErrTruncatedCLODData)
	}

	if r.Len() < numTriangles*3*4 {
		return nil, fmt.Errorf("%w: %d triangles declared", ErrTruncatedCLODData, numTriangles)
	}
	c.Indices = make([]int32, 3*numTriangles)
	if err := binary.Read(r, binary.LittleEndian, c.Indices); err != nil {
		return nil, fmt.Errorf("%w: reading indices", ErrTruncatedCLODData)
	}

	// 20 bytes of fixed fields per record.
	if r.Len() < numRecords*20 {
		return nil, fmt.Errorf("%w: %d records declared", ErrTruncatedCLODData, numRecords)
	}
	c.Records = make([]clod.CollapseRecord, 0, numRecords)
	for i := 0; i < numRecords; i++ {
		rec, err := parseCLODRecord(r)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		c.Records = append(c.Records, rec)
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%d trailing bytes after CLOD payload", r.Len())
	}
	return c, nil
}

// parseCLODRecord parses a single collapse record.
func parseCLODRecord(r *bytes.Reader) (clod.CollapseRecord, error) {
	var fixed struct {
		VKeep, VThrow             int32
		NumVertices, NumTriangles int32
		NumIndices                uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &fixed); err != nil {
		return clod.CollapseRecord{}, fmt.Errorf("%w: reading record header", ErrTruncatedCLODData)
	}
	rec := clod.CollapseRecord{
		VKeep:        fixed.VKeep,
		VThrow:       fixed.VThrow,
		NumVertices:  fixed.NumVertices,
		NumTriangles: fixed.NumTriangles,
	}
	if n := int(fixed.NumIndices); n > 0 {
		if r.Len() < n*4 {
			return clod.CollapseRecord{}, fmt.Errorf("%w: %d record indices declared", ErrTruncatedCLODData, n)
		}
		rec.Indices = make([]int32, n)
		if err := binary.Read(r, binary.LittleEndian, rec.Indices); err != nil {
			return clod.CollapseRecord{}, fmt.Errorf("%w: reading record indices", ErrTruncatedCLODData)
		}
	}
	return rec, nil
}

// ReadCLODFile reads a .clod file from disk.
func ReadCLODFile(path string) (*CLOD, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading CLOD file: %w", err)
	}
	return ReadCLOD(bytes.NewReader(data))
}

// WriteCLODFile writes the set to disk with the given codec.
func WriteCLODFile(path string, c *CLOD, codec Codec) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating CLOD file: %w", err)
	}
	if err := WriteCLOD(f, c, codec); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
