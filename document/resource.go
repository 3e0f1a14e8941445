package document

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ResolveURI returns the bytes behind a data: URI or a path relative to BaseDir.
// Remote URIs are not followed.
func (d *Document) ResolveURI(uri string) ([]byte, error) {
	if d == nil {
		return nil, fmt.Errorf("document: nil document")
	}
	if rest, ok := strings.CutPrefix(uri, "data:"); ok {
		meta, payload, found := strings.Cut(rest, ",")
		if !found {
			return nil, fmt.Errorf("%w: data uri without payload", ErrMalformed)
		}
		if strings.HasSuffix(meta, ";base64") {
			b, err := base64.StdEncoding.DecodeString(payload)
			if err != nil {
				return nil, fmt.Errorf("%w: data uri: %v", ErrMalformed, err)
			}
			return b, nil
		}
		s, err := url.PathUnescape(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: data uri: %v", ErrMalformed, err)
		}
		return []byte(s), nil
	}
	if strings.Contains(uri, "://") {
		return nil, fmt.Errorf("document: remote resource %q not supported", uri)
	}
	if d.BaseDir == "" {
		return nil, fmt.Errorf("document: relative resource %q without base directory", uri)
	}
	clean, err := url.PathUnescape(uri)
	if err != nil {
		clean = uri
	}
	return os.ReadFile(filepath.Join(d.BaseDir, filepath.FromSlash(clean)))
}

// BufferViewBytes slices a buffer view out of its buffer.
func (d *Document) BufferViewBytes(index int) ([]byte, error) {
	if d == nil || index < 0 || index >= len(d.BufferViews) {
		return nil, fmt.Errorf("%w: buffer view %d", ErrIndexOutOfRange, index)
	}
	bv := d.BufferViews[index]
	buf, err := d.bufferBytes(bv.Buffer)
	if err != nil {
		return nil, err
	}
	end := bv.ByteOffset + bv.ByteLength
	if bv.ByteOffset < 0 || bv.ByteLength < 0 || end > len(buf) {
		return nil, fmt.Errorf("%w: buffer view %d [%d:%d] of %d bytes", ErrIndexOutOfRange, index, bv.ByteOffset, end, len(buf))
	}
	return buf[bv.ByteOffset:end], nil
}

func (d *Document) bufferBytes(index int) ([]byte, error) {
	if index < 0 || index >= len(d.Buffers) {
		return nil, fmt.Errorf("%w: buffer %d", ErrIndexOutOfRange, index)
	}
	b := d.Buffers[index]
	if b.URI == "" {
		if index != 0 || d.binChunk == nil {
			return nil, fmt.Errorf("%w: buffer %d has no uri and no GLB binary chunk", ErrMalformed, index)
		}
		return d.binChunk, nil
	}
	return d.ResolveURI(b.URI)
}

// Texture decodes the image behind texture index.
func (d *Document) Texture(index int) (image.Image, error) {
	if d == nil || index < 0 || index >= len(d.Textures) {
		return nil, fmt.Errorf("%w: texture %d", ErrIndexOutOfRange, index)
	}
	src := d.Textures[index].Source
	if src == nil || *src < 0 || *src >= len(d.Images) {
		return nil, fmt.Errorf("%w: texture %d has no valid image source", ErrIndexOutOfRange, index)
	}
	img := d.Images[*src]

	var (
		data []byte
		err  error
	)
	switch {
	case img.BufferView != nil:
		data, err = d.BufferViewBytes(*img.BufferView)
	case img.URI != "":
		data, err = d.ResolveURI(img.URI)
	default:
		err = fmt.Errorf("%w: image %d has neither uri nor bufferView", ErrMalformed, *src)
	}
	if err != nil {
		return nil, fmt.Errorf("document: texture %d: %w", index, err)
	}

	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("document: texture %d: decode: %w", index, err)
	}
	return decoded, nil
}
