package cache

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	// Register decoders for the common image formats.
	_ "image/gif"
	_ "image/jpeg"

	jsoniter "github.com/json-iterator/go"

	"github.com/webfetch/go-client/pkg/request"
)

// json - replacement of the standard encoding/json library, it is faster for larger payloads.
var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals

// codec serializes decoded response objects for the disk tier.
// Each response type has its own representation on disk.
type codec interface {
	encode(obj any) ([]byte, error)
	decode(raw []byte) (any, error)
}

func codecFor(responseType request.ResponseType) codec {
	switch responseType {
	case request.ResponseTypeJSON:
		return jsonCodec{}
	case request.ResponseTypeImage:
		return imageCodec{}
	default:
		return dataCodec{}
	}
}

type jsonCodec struct{}

func (jsonCodec) encode(obj any) ([]byte, error) {
	return json.Marshal(obj)
}

func (jsonCodec) decode(raw []byte) (any, error) {
	var obj any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// imageCodec stores images as PNG, whatever format they were fetched in.
type imageCodec struct{}

func (imageCodec) encode(obj any) ([]byte, error) {
	img, ok := obj.(image.Image)
	if !ok {
		return nil, fmt.Errorf("expected image.Image, got %T", obj)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (imageCodec) decode(raw []byte) (any, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	return img, nil
}

type dataCodec struct{}

func (dataCodec) encode(obj any) ([]byte, error) {
	raw, ok := obj.([]byte)
	if !ok {
		return nil, fmt.Errorf("expected []byte, got %T", obj)
	}
	return raw, nil
}

func (dataCodec) decode(raw []byte) (any, error) {
	return raw, nil
}
