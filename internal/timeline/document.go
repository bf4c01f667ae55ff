package timeline

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/layer"
)

// Version is written into every new document.
const Version = "1.0"

// Document is a timeline file: shared playback settings and the keyframes
// of every layer.
type Document struct {
	XMLName    xml.Name         `xml:"Timeline" yaml:"-"`
	Version    string           `xml:"version,attr" yaml:"version"`
	ID         string           `xml:"id,attr" yaml:"id"`
	FrameRate  float64          `xml:"FrameRate,omitempty" yaml:"frame_rate,omitempty"`
	MaxFrameNo int              `xml:"MaxFrameNo,omitempty" yaml:"max_frame_no,omitempty"`
	Loop       bool             `xml:"Loop,omitempty" yaml:"loop,omitempty"`
	UseTangent bool             `xml:"UseTangent,omitempty" yaml:"use_tangent,omitempty"`
	Layers     []layer.LayerXml `xml:"Layer" yaml:"layers"`
}

// NewDocument returns an empty document with a fresh id.
func NewDocument() *Document {
	return &Document{Version: Version, ID: uuid.NewString()}
}

// Layer returns the layer tree named name, nil when absent.
func (d *Document) Layer(name string) *layer.LayerXml {
	for i := range d.Layers {
		if d.Layers[i].Name == name {
			return &d.Layers[i]
		}
	}
	return nil
}

// Format is the on-disk encoding of a document.
type Format int

const (
	FormatYAML Format = iota
	FormatXML
)

func (f Format) String() string {
	if f == FormatXML {
		return "xml"
	}
	return "yaml"
}

// FormatOf picks the encoding from the file extension; anything that is
// not .xml is YAML.
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".xml") {
		return FormatXML
	}
	return FormatYAML
}

// IOError reports a failed read, write or parse of a document file.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("timeline: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Encode serializes doc in format f.
func Encode(doc *Document, f Format) ([]byte, error) {
	if f == FormatXML {
		data, err := xml.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, err
		}
		return append([]byte(xml.Header), append(data, '\n')...), nil
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses data in format f and fills the version and id when the
// file omits them. A present id must be a UUID.
func Decode(data []byte, f Format) (*Document, error) {
	var doc Document
	var err error
	if f == FormatXML {
		err = xml.Unmarshal(data, &doc)
	} else {
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, err
	}

	if doc.Version == "" {
		doc.Version = Version
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	} else if _, err := uuid.Parse(doc.ID); err != nil {
		return nil, fmt.Errorf("invalid id %q: %w", doc.ID, err)
	}
	seen := make(map[string]bool, len(doc.Layers))
	for _, l := range doc.Layers {
		if l.Name == "" {
			return nil, fmt.Errorf("layer without name")
		}
		if seen[l.Name] {
			return nil, fmt.Errorf("duplicate layer %s", l.Name)
		}
		seen[l.Name] = true
	}
	return &doc, nil
}

// WriteDocument writes doc to path, choosing the encoding by extension.
// The file is replaced atomically.
func WriteDocument(doc *Document, path string) error {
	data, err := Encode(doc, FormatOf(path))
	if err != nil {
		return &IOError{Op: "encode", Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".timeline-*")
	if err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// ReadDocument reads the document at path, choosing the encoding by
// extension.
func ReadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	doc, err := Decode(data, FormatOf(path))
	if err != nil {
		return nil, &IOError{Op: "parse", Path: path, Err: err}
	}
	return doc, nil
}
