package container

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/oneconcern/datapatch/pkg/errors"
	"github.com/oneconcern/datapatch/pkg/model"
)

const (
	// FormatMagic identifies a container file (first header line)
	FormatMagic = "datapatch_v01"

	// HeaderBlockSize is the fixed size of the administrative header block
	// reserved at the beginning of each container file
	HeaderBlockSize = 1024
)

// deterministic encoding keeps payload bytes (and therefore content
// hashes) stable across encoders
var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("container: cbor encoder setup: %v", err))
	}
}

// wireNode is the serialized form of a tree node
type wireNode struct {
	Kind      uint8                `cbor:"1,keyasint"`
	Value     []byte               `cbor:"2,keyasint,omitempty"`
	Attrs     map[string][]byte    `cbor:"3,keyasint,omitempty"`
	Children  map[string]*wireNode `cbor:"4,keyasint,omitempty"`
	Overwrite bool                 `cbor:"5,keyasint,omitempty"`
}

func toWire(node model.Node) *wireNode {
	w := &wireNode{Kind: uint8(node.Kind())}
	if attrs := node.Attributes(); len(attrs) > 0 {
		w.Attrs = make(map[string][]byte, len(attrs))
		for k, v := range attrs {
			w.Attrs[k] = v.MarshalSentinel()
		}
	}
	switch n := node.(type) {
	case *model.Group:
		w.Overwrite = n.Overwrite
		if len(n.Children) > 0 {
			w.Children = make(map[string]*wireNode, len(n.Children))
			for k, child := range n.Children {
				w.Children[k] = toWire(child)
			}
		}
	case *model.Dataset:
		w.Value = n.Value.MarshalSentinel()
	}
	return w
}

func fromWire(w *wireNode) (model.Node, error) {
	if w == nil {
		return nil, ErrFormat
	}
	attrs := make(model.AttrSet, len(w.Attrs))
	for k, v := range w.Attrs {
		attrs[k] = model.UnmarshalSentinel(v)
	}
	switch model.Kind(w.Kind) {
	case model.KindGroup:
		g := &model.Group{
			Attrs:     attrs,
			Children:  make(map[string]model.Node, len(w.Children)),
			Overwrite: w.Overwrite,
		}
		for k, child := range w.Children {
			c, err := fromWire(child)
			if err != nil {
				return nil, err
			}
			g.Children[k] = c
		}
		return g, nil
	case model.KindDataset:
		return &model.Dataset{
			Attrs: attrs,
			Value: model.UnmarshalSentinel(w.Value),
		}, nil
	default:
		return nil, errors.New("unknown node kind").Wrap(ErrFormat)
	}
}

// Payload returns the serialized tree bytes, i.e. everything after the
// header block. These are the bytes the content hash covers.
func (c *Container) Payload() ([]byte, error) {
	return encMode.Marshal(toWire(c.Root))
}

// headerBlock renders the administrative block: the magic string, the
// claimed block size and the JSON header, NUL terminated and zero padded
// to HeaderBlockSize.
func headerBlock(h model.Header) ([]byte, error) {
	meta, err := json.Marshal(h)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s\n%d\n%s\x00", FormatMagic, HeaderBlockSize, meta)
	if buf.Len() > HeaderBlockSize {
		return nil, errors.New("header metadata exceeds the reserved block").Wrap(ErrFormat)
	}
	block := make([]byte, HeaderBlockSize)
	copy(block, buf.Bytes())
	return block, nil
}

func parseHeaderBlock(block []byte) (model.Header, error) {
	var h model.Header
	head, _, found := bytes.Cut(block, []byte{0x00})
	if !found {
		return h, ErrFormat
	}
	lines := strings.SplitN(string(head), "\n", 3)
	if len(lines) != 3 || lines[0] != FormatMagic {
		return h, ErrFormat
	}
	if size, err := strconv.Atoi(lines[1]); err != nil || size != HeaderBlockSize {
		return h, ErrFormat
	}
	if err := json.Unmarshal([]byte(lines[2]), &h); err != nil {
		return h, errors.New("malformed header metadata").Wrap(err)
	}
	return h, nil
}

// Encode writes the container file: header block followed by payload
func (c *Container) Encode(w io.Writer) error {
	block, err := headerBlock(c.Header)
	if err != nil {
		return err
	}
	payload, err := c.Payload()
	if err != nil {
		return err
	}
	if _, err = w.Write(block); err != nil {
		return err
	}
	_, err = w.Write(payload)
	return err
}

// DecodeHeader reads only the administrative header block, leaving the
// payload untouched
func DecodeHeader(r io.Reader) (model.Header, error) {
	block := make([]byte, HeaderBlockSize)
	if _, err := io.ReadFull(r, block); err != nil {
		return model.Header{}, errors.New("short container file").Wrap(ErrFormat)
	}
	return parseHeaderBlock(block)
}

// Decode reads a full container file and validates its tree against the
// reserved-namespace restrictions of the format
func Decode(r io.Reader) (*Container, error) {
	header, err := DecodeHeader(r)
	if err != nil {
		return nil, err
	}
	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var w wireNode
	if err = cbor.Unmarshal(payload, &w); err != nil {
		return nil, errors.New("malformed container payload").Wrap(ErrFormat)
	}
	node, err := fromWire(&w)
	if err != nil {
		return nil, err
	}
	root, ok := node.(*model.Group)
	if !ok {
		return nil, errors.New("container root must be a group").Wrap(ErrFormat)
	}
	if err = model.ValidateTree(model.RootPath, root); err != nil {
		return nil, err
	}
	return &Container{Header: header, Root: root}, nil
}
