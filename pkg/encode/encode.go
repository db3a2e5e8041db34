// Package encode turns a loosely-typed parameter bag into a transport-ready payload.
//
// Supported parameter values are scalars, sequences, string-keyed mappings
// and binary parts. Anything else is rejected before a transport attempt.
package encode

import (
	"bytes"
	jsonlib "encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"reflect"
	"sort"
	"strings"

	"github.com/keboola/go-utils/pkg/orderedmap"
	"github.com/spf13/cast"

	"github.com/webfetch/go-client/pkg/request"
)

// Payload is the transport-ready representation of request parameters.
// Either Body/ContentType or Query is set, never both.
type Payload struct {
	// Body is the request body, nil for body-less encodings.
	Body []byte
	// ContentType of the body, empty when Body is nil.
	ContentType string
	// Query holds form-URL-encoded parameters to be appended to the URL.
	Query url.Values
}

// Encode builds the payload for the given parameter type.
// A nil parameter bag yields an empty payload unless parts are present.
func Encode(paramType request.ParamType, params request.Params, parts []request.Part) (Payload, error) {
	switch paramType {
	case request.ParamTypeNone:
		return Payload{}, nil
	case request.ParamTypeForm:
		query, err := FormValues(params)
		if err != nil {
			return Payload{}, err
		}
		return Payload{Query: query}, nil
	case request.ParamTypeJSON:
		if params == nil {
			return Payload{}, nil
		}
		body, err := json.Marshal(params)
		if err != nil {
			return Payload{}, fmt.Errorf("cannot encode JSON body: %w", err)
		}
		return Payload{Body: body, ContentType: "application/json"}, nil
	case request.ParamTypeMultipart:
		return multipartPayload(params, parts)
	default:
		return Payload{}, fmt.Errorf(`unexpected parameter type "%s"`, paramType)
	}
}

// FormValues converts a parameter bag to URL query values.
// A sequence value "k" is flattened to "k[0]", "k[1]", ... keys,
// a mapping value to "k[innerKey]" keys.
func FormValues(params request.Params) (url.Values, error) {
	out := make(url.Values)
	for k, v := range params {
		if v == nil {
			out.Set(k, "")
			continue
		}
		ty := reflect.TypeOf(v)
		switch {
		case ty.Kind() == reflect.Slice && ty.Elem().Kind() != reflect.Uint8:
			rv := reflect.ValueOf(v)
			for i := 0; i < rv.Len(); i++ {
				s, err := castToString(rv.Index(i).Interface())
				if err != nil {
					return nil, err
				}
				out.Set(fmt.Sprintf("%s[%d]", k, i), s)
			}
		case ty.Kind() == reflect.Map && ty.Key().Kind() == reflect.String:
			rv := reflect.ValueOf(v)
			for _, key := range rv.MapKeys() {
				s, err := castToString(rv.MapIndex(key).Interface())
				if err != nil {
					return nil, err
				}
				out.Set(fmt.Sprintf("%s[%s]", k, key.String()), s)
			}
		default:
			s, err := castToString(v)
			if err != nil {
				return nil, err
			}
			out.Set(k, s)
		}
	}
	return out, nil
}

func multipartPayload(params request.Params, parts []request.Part) (Payload, error) {
	var buf bytes.Buffer
	wr := multipart.NewWriter(&buf)

	// Scalar parameters first, as plain form fields.
	query, err := FormValues(params)
	if err != nil {
		return Payload{}, err
	}
	for _, k := range sortedKeys(query) {
		for _, v := range query[k] {
			if err := wr.WriteField(k, v); err != nil {
				return Payload{}, fmt.Errorf("cannot write multipart field: %w", err)
			}
		}
	}

	for i, part := range parts {
		if part.FieldName == "" {
			return Payload{}, fmt.Errorf("multipart part %d has no field name", i)
		}
		if len(part.Data) == 0 {
			return Payload{}, fmt.Errorf(`multipart part "%s" has no content`, part.FieldName)
		}
		contentType := part.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(
			`form-data; name="%s"; filename="%s"`,
			escapeQuotes(part.FieldName), escapeQuotes(part.FileName),
		))
		header.Set("Content-Type", contentType)
		w, err := wr.CreatePart(header)
		if err != nil {
			return Payload{}, fmt.Errorf("cannot create multipart part: %w", err)
		}
		if _, err := w.Write(part.Data); err != nil {
			return Payload{}, fmt.Errorf("cannot write multipart part: %w", err)
		}
	}

	if err := wr.Close(); err != nil {
		return Payload{}, fmt.Errorf("cannot finalize multipart body: %w", err)
	}
	return Payload{Body: buf.Bytes(), ContentType: wr.FormDataContentType()}, nil
}

func castToString(v any) (string, error) {
	// Ordered map
	if om, ok := v.(*orderedmap.OrderedMap); ok {
		// Standard json encoding library is used.
		// JsonIter lib returns non-compact JSON,
		// if custom OrderedMap.MarshalJSON method is used.
		out, err := jsonlib.Marshal(om)
		if err != nil {
			return "", fmt.Errorf(`cannot cast %T to string: %w`, v, err)
		}
		return string(out), nil
	}

	// Other types
	out, err := cast.ToStringE(v)
	if err != nil {
		return "", fmt.Errorf(`cannot cast %T to string: %w`, v, err)
	}
	return out, nil
}

func escapeQuotes(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

func sortedKeys(values url.Values) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
