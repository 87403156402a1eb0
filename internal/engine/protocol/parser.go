package protocol

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"HttpSpectra/internal/model"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

var httpMethods = map[string]struct{}{
	"GET": {}, "POST": {}, "PUT": {}, "DELETE": {}, "HEAD": {},
	"OPTIONS": {}, "PATCH": {}, "TRACE": {}, "CONNECT": {},
}

// Classifier turns decoded frames into stats events for one TCP port.
type Classifier struct {
	port layers.TCPPort
}

// NewClassifier creates a classifier matching frames whose source or
// destination port equals port.
func NewClassifier(port uint16) *Classifier {
	return &Classifier{port: layers.TCPPort(port)}
}

// Port returns the watched port.
func (c *Classifier) Port() uint16 {
	return uint16(c.port)
}

// ClassifyData decodes raw frame bytes of the given link type and classifies them.
func (c *Classifier) ClassifyData(data []byte, linkType gopacket.Decoder) model.Event {
	packet := gopacket.NewPacket(data, linkType, gopacket.Lazy)
	return c.Classify(packet)
}

// Classify inspects one decoded frame. Frames that are not TCP, not on the
// watched port, or whose payload does not start with an HTTP request or
// status line are returned as EventIgnore.
func (c *Classifier) Classify(packet gopacket.Packet) model.Event {
	ignore := model.Event{Kind: model.EventIgnore}

	l := packet.Layer(layers.LayerTypeTCP)
	if l == nil {
		return ignore
	}
	tcp, ok := l.(*layers.TCP)
	if !ok || (tcp.SrcPort != c.port && tcp.DstPort != c.port) {
		return ignore
	}
	payload := tcp.LayerPayload()
	if len(payload) == 0 {
		return ignore
	}

	ev := model.Event{
		ByteSize:  len(payload),
		Timestamp: time.Now(),
	}
	if meta := packet.Metadata(); meta != nil && !meta.Timestamp.IsZero() {
		ev.Timestamp = meta.Timestamp
	}
	if nl := packet.NetworkLayer(); nl != nil {
		src, dst := nl.NetworkFlow().Endpoints()
		ev.Flow = model.NewFlowKey(src.Raw(), uint16(tcp.SrcPort), dst.Raw(), uint16(tcp.DstPort))
	}

	line := firstLine(payload)
	if method, ok := ParseRequestLine(line); ok {
		ev.Kind = model.EventRequest
		ev.Method = method
		ev.Host = HeaderValue(payload, "Host")
		return ev
	}
	if code, text, ok := ParseStatusLine(line); ok {
		ev.Kind = model.EventResponse
		ev.StatusCode = code
		ev.StatusText = text
		ev.ContentType = MediaType(HeaderValue(payload, "Content-Type"))
		return ev
	}
	return ignore
}

func firstLine(payload []byte) []byte {
	if i := bytes.IndexByte(payload, '\n'); i >= 0 {
		payload = payload[:i]
	}
	return bytes.TrimSuffix(payload, []byte("\r"))
}

// ParseRequestLine reports whether line starts an HTTP request and returns the
// method. A known method followed by a target is enough: a long request line
// may be cut at the segment boundary before the version, so the version is
// only checked when present.
func ParseRequestLine(line []byte) (string, bool) {
	parts := bytes.Fields(line)
	if len(parts) < 2 || len(parts) > 3 {
		return "", false
	}
	method := string(parts[0])
	if _, ok := httpMethods[method]; !ok {
		return "", false
	}
	if len(parts) == 3 && !bytes.HasPrefix(parts[2], []byte("HTTP/")) {
		return "", false
	}
	return method, true
}

// ParseStatusLine reports whether line looks like "HTTP/x.y code reason" and
// returns the code and reason phrase.
func ParseStatusLine(line []byte) (int, string, bool) {
	if !bytes.HasPrefix(line, []byte("HTTP/")) {
		return 0, "", false
	}
	parts := bytes.SplitN(line, []byte(" "), 3)
	if len(parts) < 2 || len(parts[1]) != 3 {
		return 0, "", false
	}
	code, err := strconv.Atoi(string(parts[1]))
	if err != nil || code < 100 || code > 999 {
		return 0, "", false
	}
	text := ""
	if len(parts) == 3 {
		text = string(bytes.TrimSpace(parts[2]))
	}
	return code, text, true
}

// MediaType strips parameters such as "; charset=UTF-8" from a Content-Type value.
func MediaType(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.TrimSpace(contentType)
}

// HeaderValue returns the trimmed value of the first header named name
// (case-insensitive) in the header block carried by payload, or "".
func HeaderValue(payload []byte, name string) string {
	lines := bytes.Split(payload, []byte("\n"))
	for _, l := range lines[1:] {
		l = bytes.TrimSuffix(l, []byte("\r"))
		if len(l) == 0 {
			break
		}
		colon := bytes.IndexByte(l, ':')
		if colon <= 0 {
			continue
		}
		if bytes.EqualFold(bytes.TrimSpace(l[:colon]), []byte(name)) {
			return string(bytes.TrimSpace(l[colon+1:]))
		}
	}
	return ""
}
