// Package classifier calls the external face/eye and voice model services.
// Every upstream failure degrades to NotAvailable predictions.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"autism-screening/internal/screening"
)

const maxErrorBody = 512

// Media is the raw input for one screening. Empty fields are skipped.
type Media struct {
	Photo     []byte
	PhotoName string
	Audio     []byte
	AudioName string
}

type Client struct {
	faceURL  string
	voiceURL string
	http     *http.Client
	log      *slog.Logger
}

func New(faceURL, voiceURL string, timeout time.Duration, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		faceURL:  strings.TrimRight(faceURL, "/"),
		voiceURL: strings.TrimRight(voiceURL, "/"),
		http:     &http.Client{Timeout: timeout},
		log:      log,
	}
}

type photoResp struct {
	FacePrediction  string   `json:"face_prediction"`
	FaceConfidence  *float64 `json:"face_confidence"`
	EyePrediction   string   `json:"eye_prediction"`
	EyeConfidence   *float64 `json:"eye_confidence"`
	FinalPrediction string   `json:"final_prediction"`
	FinalConfidence *float64 `json:"final_confidence"`
}

type voiceResp struct {
	Prediction string   `json:"prediction"`
	Confidence *float64 `json:"confidence"`
}

type errorResp struct {
	Error string `json:"error"`
}

// Classify runs the photo and audio services concurrently and returns
// face, eye and voice predictions in that order. Missing media yields
// NotAvailable for the modalities it would have produced.
func (c *Client) Classify(ctx context.Context, m Media) []screening.ModalityPrediction {
	face := screening.NotAvailable(screening.ModalityFace)
	eye := screening.NotAvailable(screening.ModalityEye)
	voice := screening.NotAvailable(screening.ModalityVoice)

	g, gctx := errgroup.WithContext(ctx)
	if len(m.Photo) > 0 {
		g.Go(func() error {
			face, eye = c.ClassifyPhoto(gctx, m.PhotoName, m.Photo)
			return nil
		})
	}
	if len(m.Audio) > 0 {
		g.Go(func() error {
			voice = c.ClassifyVoice(gctx, m.AudioName, m.Audio)
			return nil
		})
	}
	_ = g.Wait()

	return []screening.ModalityPrediction{face, eye, voice}
}

// ClassifyPhoto posts a photo to the face/eye service.
func (c *Client) ClassifyPhoto(ctx context.Context, filename string, photo []byte) (face, eye screening.ModalityPrediction) {
	face = screening.NotAvailable(screening.ModalityFace)
	eye = screening.NotAvailable(screening.ModalityEye)
	if c.faceURL == "" {
		c.log.Debug("face classifier not configured")
		return face, eye
	}

	var out photoResp
	if err := c.postFile(ctx, c.faceURL+"/predict", "photo", nameOr(filename, "photo.jpg"), photo, &out); err != nil {
		c.log.Warn("face classifier failed", "error", err)
		return face, eye
	}
	face = screening.Normalize(string(screening.ModalityFace), out.FacePrediction, out.FaceConfidence)
	eye = screening.Normalize(string(screening.ModalityEye), out.EyePrediction, out.EyeConfidence)
	c.log.Debug("face classifier result", "face", face.Label, "eye", eye.Label)
	return face, eye
}

// ClassifyVoice posts an audio clip to the voice service.
func (c *Client) ClassifyVoice(ctx context.Context, filename string, audio []byte) screening.ModalityPrediction {
	if c.voiceURL == "" {
		c.log.Debug("voice classifier not configured")
		return screening.NotAvailable(screening.ModalityVoice)
	}

	var out voiceResp
	if err := c.postFile(ctx, c.voiceURL+"/predict_audio", "audio", nameOr(filename, "audio.wav"), audio, &out); err != nil {
		c.log.Warn("voice classifier failed", "error", err)
		return screening.NotAvailable(screening.ModalityVoice)
	}
	p := screening.Normalize(string(screening.ModalityVoice), out.Prediction, out.Confidence)
	c.log.Debug("voice classifier result", "label", p.Label)
	return p
}

func (c *Client) postFile(ctx context.Context, url, field, filename string, data []byte, out any) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return err
	}
	if _, err := fw.Write(data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	res, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "POST %s", url)
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		var e errorResp
		if json.Unmarshal(b, &e) == nil && e.Error != "" {
			return fmt.Errorf("POST %s -> %d: %s", url, res.StatusCode, e.Error)
		}
		return fmt.Errorf("POST %s -> %d: %s", url, res.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode %s response", url)
	}
	return nil
}

func nameOr(name, def string) string {
	if name == "" {
		return def
	}
	return name
}
