package core

import (
	"bytes"
	"io"
)

type BodyKind int

const (
	BodyNone BodyKind = iota
	BodyJSON
	BodyText
	BodyBinary
	BodyMultipart
)

func (k BodyKind) String() string {
	switch k {
	case BodyJSON:
		return "json"
	case BodyText:
		return "text"
	case BodyBinary:
		return "binary"
	case BodyMultipart:
		return "multipart"
	default:
		return "none"
	}
}

// Body is a request payload tagged with its kind. Only JSON bodies are
// re-encoded by the transport; every other kind is sent as supplied.
type Body struct {
	kind        BodyKind
	value       any
	text        string
	reader      io.Reader
	contentType string
}

func NoBody() Body {
	return Body{}
}

func JSONBody(value any) Body {
	if value == nil {
		return Body{}
	}
	return Body{kind: BodyJSON, value: value}
}

func TextBody(text string) Body {
	return Body{kind: BodyText, text: text}
}

func BinaryBody(reader io.Reader) Body {
	return Body{kind: BodyBinary, reader: reader}
}

func BytesBody(data []byte) Body {
	return Body{kind: BodyBinary, reader: bytes.NewReader(data)}
}

// MultipartBody wraps an encoded multipart form. contentType is the value
// produced by multipart.Writer.FormDataContentType and carries the boundary.
func MultipartBody(reader io.Reader, contentType string) Body {
	return Body{kind: BodyMultipart, reader: reader, contentType: contentType}
}

func (b Body) Kind() BodyKind { return b.kind }

func (b Body) Value() any { return b.value }

func (b Body) Text() string { return b.text }

func (b Body) Reader() io.Reader { return b.reader }

func (b Body) ContentType() string { return b.contentType }

func (b Body) IsZero() bool { return b.kind == BodyNone }
