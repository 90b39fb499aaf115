package core

import (
	"math"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for stored domain entities.
//
// These are maintained by hand rather than generated: the set is small and
// the encoding must stay stable across releases. Timestamps are encoded as
// Unix microseconds, float32 vector components as their IEEE 754 bits.

// IDMUS serializes ID values.
var IDMUS = idMUS{}

type idMUS struct{}

func (idMUS) Marshal(id ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(id), bs)
}

func (idMUS) Unmarshal(bs []byte) (id ID, n int, err error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

func (idMUS) Size(id ID) (size int) {
	return varint.Uint64.Size(uint64(id))
}

// DocumentMUS serializes Document values.
var DocumentMUS = documentMUS{}

type documentMUS struct{}

func (documentMUS) Marshal(d Document, bs []byte) (n int) {
	n = IDMUS.Marshal(d.Id, bs)
	n += ord.String.Marshal(d.Title, bs[n:])
	n += ord.String.Marshal(d.Content, bs[n:])
	n += varint.Int.Marshal(int(d.Type), bs[n:])
	n += varint.Int.Marshal(len(d.Tags), bs[n:])
	for _, tag := range d.Tags {
		n += ord.String.Marshal(tag, bs[n:])
	}
	n += ord.String.Marshal(d.Language, bs[n:])
	n += varint.Int64.Marshal(d.CreatedAt.UnixMicro(), bs[n:])
	n += ord.String.Marshal(d.Source, bs[n:])
	n += varint.Int.Marshal(len(d.Vector), bs[n:])
	for _, v := range d.Vector {
		n += varint.Uint32.Marshal(math.Float32bits(v), bs[n:])
	}
	return n
}

func (documentMUS) Unmarshal(bs []byte) (d Document, n int, err error) {
	var n1 int
	d.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	d.Title, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.Content, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var docType int
	docType, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.Type = DocType(docType)
	var tagCount int
	tagCount, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	if tagCount > 0 {
		d.Tags = make([]string, tagCount)
		for i := 0; i < tagCount; i++ {
			d.Tags[i], n1, err = ord.String.Unmarshal(bs[n:])
			n += n1
			if err != nil {
				return
			}
		}
	}
	d.Language, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var createdAt int64
	createdAt, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.CreatedAt = time.UnixMicro(createdAt).UTC()
	d.Source, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var vecLen int
	vecLen, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	if vecLen > 0 {
		d.Vector = make([]float32, vecLen)
		for i := 0; i < vecLen; i++ {
			var bits uint32
			bits, n1, err = varint.Uint32.Unmarshal(bs[n:])
			n += n1
			if err != nil {
				return
			}
			d.Vector[i] = math.Float32frombits(bits)
		}
	}
	return
}

func (documentMUS) Size(d Document) (size int) {
	size = IDMUS.Size(d.Id)
	size += ord.String.Size(d.Title)
	size += ord.String.Size(d.Content)
	size += varint.Int.Size(int(d.Type))
	size += varint.Int.Size(len(d.Tags))
	for _, tag := range d.Tags {
		size += ord.String.Size(tag)
	}
	size += ord.String.Size(d.Language)
	size += varint.Int64.Size(d.CreatedAt.UnixMicro())
	size += ord.String.Size(d.Source)
	size += varint.Int.Size(len(d.Vector))
	for _, v := range d.Vector {
		size += varint.Uint32.Size(math.Float32bits(v))
	}
	return size
}
