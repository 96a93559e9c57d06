package fingerprint

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pranaysuyash/metaextract-sub011/pkg/types"
	"github.com/pranaysuyash/metaextract-sub011/pkg/utils"
)

// CollectorDataHeader carries the compressed client-side collector payload.
const CollectorDataHeader = "X-Collector-Data"

const baseConfidence = 0.5

// richSignals are the client-reported attributes that each add confidence
// when present.
var richSignals = []string{
	AttrCanvas,
	AttrWebGL,
	AttrAudio,
	AttrFonts,
	AttrPlugins,
}

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate assembles the attribute bag from server-observable request data
// plus optional client-reported attributes, then derives hash, device id and
// confidence. Confidence starts at 0.5 and grows per rich signal, capped at 1.
func (g *Generator) Generate(req *types.RequestContext) *Fingerprint {
	attrs := make(map[string]string)

	attrs[AttrIP] = req.IP
	if ua := req.Header("User-Agent"); ua != "" {
		attrs[AttrUserAgent] = ua
		if info := utils.ParseUserAgent(ua, req.Header("Accept-Language")); info != nil {
			attrs[AttrPlatform] = info.OS
		}
	}
	if lang := req.Header("Accept-Language"); lang != "" {
		attrs[AttrAcceptLanguage] = lang
	}
	if enc := req.Header("Accept-Encoding"); enc != "" {
		attrs[AttrAcceptEncoding] = enc
	}
	if country := geoCountry(req); country != "" {
		attrs[AttrGeoCountry] = country
	}

	clientAttrs := req.ClientAttributes
	if clientAttrs == nil {
		if decoded, err := DecodeCollectorData(req.Header(CollectorDataHeader)); err == nil {
			clientAttrs = decoded
		}
	}
	mergeClientAttributes(attrs, clientAttrs)

	confidence := baseConfidence
	for _, signal := range richSignals {
		if attrs[signal] != "" {
			confidence += 0.1
		}
	}
	if confidence > 1.0 {
		confidence = 1.0
	}

	return &Fingerprint{
		Attributes:    attrs,
		Hash:          ComputeHash(attrs),
		DeviceID:      ComputeDeviceID(attrs),
		IP:            req.IP,
		UserID:        req.UserID,
		UserAgent:     attrs[AttrUserAgent],
		Confidence:    confidence,
		HasClientData: clientAttrs != nil,
	}
}

// DecodeCollectorData unpacks the base64+zlib payload produced by the
// client-side collector script.
func DecodeCollectorData(headerValue string) (map[string]interface{}, error) {
	if headerValue == "" {
		return nil, fmt.Errorf("empty collector payload")
	}

	data, err := base64.StdEncoding.DecodeString(headerValue)
	if err != nil {
		return nil, err
	}

	reader, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	decompressed, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	var attrs map[string]interface{}
	if err := json.Unmarshal(decompressed, &attrs); err != nil {
		return nil, err
	}
	return attrs, nil
}

func mergeClientAttributes(attrs map[string]string, clientAttrs map[string]interface{}) {
	for key, value := range clientAttrs {
		switch v := value.(type) {
		case string:
			if v != "" {
				attrs[key] = v
			}
		case bool:
			attrs[key] = fmt.Sprintf("%t", v)
		case float64:
			attrs[key] = strings.TrimSuffix(fmt.Sprintf("%.2f", v), ".00")
		case []interface{}:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				if s, ok := item.(string); ok {
					parts = append(parts, s)
				}
			}
			if len(parts) > 0 {
				attrs[key] = strings.Join(parts, ",")
			}
		}
	}
}

func geoCountry(req *types.RequestContext) string {
	for _, header := range []string{"CF-IPCountry", "X-Geo-Country"} {
		if value := req.Header(header); value != "" {
			return value
		}
	}
	return ""
}
