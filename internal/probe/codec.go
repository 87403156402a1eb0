package probe

import (
	"errors"
	"fmt"

	"HttpSpectra/internal/model"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Field numbers of the event message on the wire.
//
//	message Event {
//	  uint32 kind = 1;
//	  string host = 2;
//	  int64 byte_size = 3;
//	  string method = 4;
//	  uint32 status_code = 5;
//	  string status_text = 6;
//	  string flow = 7;
//	  google.protobuf.Timestamp timestamp = 8;
//	  string content_type = 9;
//	}
const (
	fieldKind        protowire.Number = 1
	fieldHost        protowire.Number = 2
	fieldByteSize    protowire.Number = 3
	fieldMethod      protowire.Number = 4
	fieldStatusCode  protowire.Number = 5
	fieldStatusText  protowire.Number = 6
	fieldFlow        protowire.Number = 7
	fieldTimestamp   protowire.Number = 8
	fieldContentType protowire.Number = 9
)

var errBadKind = errors.New("unknown event kind")

// EncodeEvent serializes an event to its protobuf wire form.
func EncodeEvent(ev model.Event) ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, fieldKind, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(ev.Kind))
	b = appendString(b, fieldHost, ev.Host)
	if ev.ByteSize != 0 {
		b = protowire.AppendTag(b, fieldByteSize, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(ev.ByteSize)))
	}
	b = appendString(b, fieldMethod, ev.Method)
	if ev.StatusCode != 0 {
		b = protowire.AppendTag(b, fieldStatusCode, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(ev.StatusCode))
	}
	b = appendString(b, fieldStatusText, ev.StatusText)
	b = appendString(b, fieldFlow, ev.Flow)
	b = appendString(b, fieldContentType, ev.ContentType)
	if !ev.Timestamp.IsZero() {
		ts, err := proto.Marshal(timestamppb.New(ev.Timestamp))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal timestamp: %w", err)
		}
		b = protowire.AppendTag(b, fieldTimestamp, protowire.BytesType)
		b = protowire.AppendBytes(b, ts)
	}
	return b, nil
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

// DecodeEvent parses an event from its protobuf wire form. Unknown fields are skipped.
func DecodeEvent(data []byte) (model.Event, error) {
	var ev model.Event
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return model.Event{}, protowire.ParseError(n)
		}
		data = data[n:]

		switch {
		case typ == protowire.VarintType && (num == fieldKind || num == fieldByteSize || num == fieldStatusCode):
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return model.Event{}, protowire.ParseError(n)
			}
			data = data[n:]
			switch num {
			case fieldKind:
				if v > uint64(model.EventResponse) {
					return model.Event{}, fmt.Errorf("%w: %d", errBadKind, v)
				}
				ev.Kind = model.EventKind(v)
			case fieldByteSize:
				ev.ByteSize = int(int64(v))
			case fieldStatusCode:
				ev.StatusCode = int(v)
			}
		case typ == protowire.BytesType && num >= fieldHost && num <= fieldContentType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return model.Event{}, protowire.ParseError(n)
			}
			data = data[n:]
			switch num {
			case fieldHost:
				ev.Host = string(v)
			case fieldMethod:
				ev.Method = string(v)
			case fieldStatusText:
				ev.StatusText = string(v)
			case fieldFlow:
				ev.Flow = string(v)
			case fieldContentType:
				ev.ContentType = string(v)
			case fieldTimestamp:
				var ts timestamppb.Timestamp
				if err := proto.Unmarshal(v, &ts); err != nil {
					return model.Event{}, fmt.Errorf("failed to unmarshal timestamp: %w", err)
				}
				ev.Timestamp = ts.AsTime()
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return model.Event{}, protowire.ParseError(n)
			}
			data = data[n:]
		}
	}
	return ev, nil
}
