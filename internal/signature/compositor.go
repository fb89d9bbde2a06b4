package signature

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	// Register decoders for the formats signature pads produce.
	_ "image/gif"
	_ "image/jpeg"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"go.uber.org/zap"
)

// maxImageBytes caps remote signature downloads.
const maxImageBytes = 8 << 20

// PositionSource resolves placement geometry per form type. Implemented by
// the sigstore package.
type PositionSource interface {
	Get(formType string) Geometry
	GetDual(formType string) (DualGeometry, bool)
}

// Images carries the raw signature payloads of one submission. A payload is
// either a data URI, a bare base64 string, or an http(s) URL to fetch.
type Images struct {
	Client string
	Staff  string
}

// Compositor overlays signature images onto document pages.
type Compositor struct {
	positions PositionSource
	client    *http.Client
	logger    *zap.Logger
}

// NewCompositor returns a compositor fetching remote payloads with the given
// bounded timeout.
func NewCompositor(positions PositionSource, fetchTimeout time.Duration, logger *zap.Logger) *Compositor {
	if fetchTimeout <= 0 {
		fetchTimeout = 10 * time.Second
	}
	return &Compositor{
		positions: positions,
		client:    &http.Client{Timeout: fetchTimeout},
		logger:    logger,
	}
}

type overlay struct {
	role    string
	geom    Geometry
	payload string
}

// Apply overlays every configured, supplied signature onto the last page of
// the document and returns the resulting bytes. A role whose image cannot be
// decoded or embedded is logged and skipped; Apply only fails when the
// document itself is unusable.
func (c *Compositor) Apply(ctx context.Context, doc []byte, formType string, imgs Images) ([]byte, error) {
	overlays := c.resolve(formType, imgs)
	if len(overlays) == 0 {
		return doc, nil
	}

	pageCount, pageHeight, err := lastPageDim(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to read page geometry: %w", err)
	}

	out := doc
	for _, ov := range overlays {
		stamped, err := c.stamp(ctx, out, ov, pageCount, pageHeight)
		if err != nil {
			c.logger.Warn("signature overlay skipped",
				zap.String("form_type", formType),
				zap.String("role", ov.role),
				zap.Error(err))
			continue
		}
		out = stamped
	}
	return out, nil
}

// resolve pairs each supplied payload with its configured rectangle. Form
// types without dual geometry fall back to a single shared rectangle and the
// legacy single-signature field.
func (c *Compositor) resolve(formType string, imgs Images) []overlay {
	var overlays []overlay
	if dual, ok := c.positions.GetDual(formType); ok {
		if imgs.Client != "" {
			overlays = append(overlays, overlay{role: RoleClient, geom: dual.Client, payload: imgs.Client})
		}
		if imgs.Staff != "" {
			overlays = append(overlays, overlay{role: RoleStaff, geom: dual.Staff, payload: imgs.Staff})
		}
		return overlays
	}
	if imgs.Client != "" {
		overlays = append(overlays, overlay{role: RoleClient, geom: c.positions.Get(formType), payload: imgs.Client})
	}
	return overlays
}

// stamp draws one signature image plus its role label onto the last page.
func (c *Compositor) stamp(ctx context.Context, doc []byte, ov overlay, pageCount int, pageHeight float64) ([]byte, error) {
	raw, err := c.decodePayload(ctx, ov.payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	imgBytes, width, err := normalizePNG(raw)
	if err != nil {
		return nil, fmt.Errorf("normalize image: %w", err)
	}

	geom := ov.geom
	scale := geom.Width / float64(width)
	drawY := geom.DrawY(pageHeight)
	page := []string{strconv.Itoa(pageCount)}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	// Plain objects keep filled values inspectable by downstream tooling.
	conf.WriteObjectStream = false
	conf.WriteXRefStream = false

	desc := fmt.Sprintf("pos:bl, off:%.2f %.2f, scalefactor:%.4f abs, op:%.2f, rot:0",
		geom.X, drawY, scale, geom.EffectiveOpacity())
	wm, err := api.ImageWatermarkForReader(bytes.NewReader(imgBytes), desc, true, false, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("build image stamp: %w", err)
	}

	var buf bytes.Buffer
	if err := api.AddWatermarks(bytes.NewReader(doc), &buf, page, wm, conf); err != nil {
		return nil, fmt.Errorf("embed image: %w", err)
	}
	out := buf.Bytes()

	// Cosmetic review label above the overlay; never affects geometry.
	labelDesc := fmt.Sprintf("points:8, pos:bl, off:%.2f %.2f, op:1, rot:0, fillc:#404040",
		geom.X, drawY+geom.Height+2)
	label, err := api.TextWatermark(roleLabel(ov.role), labelDesc, true, false, types.POINTS)
	if err == nil {
		var labelled bytes.Buffer
		if err := api.AddWatermarks(bytes.NewReader(out), &labelled, page, label, conf); err == nil {
			out = labelled.Bytes()
		}
	}

	return out, nil
}

func roleLabel(role string) string {
	if role == RoleStaff {
		return "Staff Signature"
	}
	return "Client Signature"
}

// decodePayload turns a signature payload into raw image bytes. Remote
// references are fetched with the compositor's bounded-timeout client.
func (c *Compositor) decodePayload(ctx context.Context, payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	switch {
	case strings.HasPrefix(payload, "data:"):
		i := strings.IndexByte(payload, ',')
		if i < 0 {
			return nil, fmt.Errorf("malformed data URI")
		}
		return base64.StdEncoding.DecodeString(payload[i+1:])
	case strings.HasPrefix(payload, "http://"), strings.HasPrefix(payload, "https://"):
		return c.fetch(ctx, payload)
	default:
		return base64.StdEncoding.DecodeString(payload)
	}
}

func (c *Compositor) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching signature", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
}

// normalizePNG verifies the image decodes and re-encodes non-PNG formats to
// PNG so the overlay supports transparency. Returns the image bytes and
// pixel width.
func normalizePNG(raw []byte) ([]byte, int, error) {
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, 0, err
	}
	width := img.Bounds().Dx()
	if width == 0 {
		return nil, 0, fmt.Errorf("image has zero width")
	}
	if format == "png" {
		return raw, width, nil
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), width, nil
}

// lastPageDim reads the page count and the height of the last page.
func lastPageDim(doc []byte) (int, float64, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pdfCtx, err := api.ReadContext(bytes.NewReader(doc), conf)
	if err != nil {
		return 0, 0, err
	}
	if err := pdfCtx.EnsurePageCount(); err != nil {
		return 0, 0, err
	}
	dims, err := pdfCtx.PageDims()
	if err != nil {
		return 0, 0, err
	}
	if len(dims) == 0 {
		return 0, 0, fmt.Errorf("document has no pages")
	}
	return pdfCtx.PageCount, dims[len(dims)-1].Height, nil
}
