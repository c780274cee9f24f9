package services

import (
	"archive/tar"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/jjudge-oj/contestjudge/internal/store"
	"github.com/jjudge-oj/contestjudge/types"
)

var sampleFilenamePattern = regexp.MustCompile(`^(\d+)\.(in|out)$`)

const (
	maxSampleFileBytes = 1 << 20
	maxSampleCases     = 500
	bundleContentType  = "application/gzip"
)

// ImportSamples replaces a question's sample cases with the contents of a
// .tar.gz bundle holding <n>.in / <n>.out pairs numbered from 0. The bundle
// is archived in object storage under a content-addressed key.
func (s *ContestService) ImportSamples(ctx context.Context, questionID int, filename string, data []byte) (types.Question, error) {
	question, err := s.questions.Get(ctx, questionID)
	if err != nil {
		return types.Question{}, err
	}

	inputs, outputs, err := ParseSampleBundle(filename, data)
	if err != nil {
		return types.Question{}, err
	}

	hash := sha256.Sum256(data)
	digest := hex.EncodeToString(hash[:])
	key := fmt.Sprintf("questions/%d/samples-%s.tar.gz", questionID, digest)

	if s.storage != nil {
		uploaded, err := s.storage.PutIfAbsent(ctx, key, bytes.NewReader(data), int64(len(data)), bundleContentType)
		if err != nil {
			return types.Question{}, fmt.Errorf("archive sample bundle: %w", err)
		}
		s.log.Info("sample bundle archived",
			zap.Int("question_id", questionID),
			zap.String("key", key),
			zap.Bool("uploaded", uploaded),
			zap.Int("cases", len(inputs)))
	}

	previous := question.SampleBundle.ObjectKey
	question.SampleInputs = inputs
	question.SampleOutputs = outputs
	question.SampleBundle = types.SampleBundle{ObjectKey: key, SHA256: digest}
	updated, err := s.questions.Update(ctx, question)
	if err != nil {
		return types.Question{}, err
	}
	if previous != key {
		s.dropBundle(ctx, questionID, previous)
	}
	return updated, nil
}

// SampleBundle opens the archived bundle a question's samples were imported
// from. The caller closes the reader.
func (s *ContestService) SampleBundle(ctx context.Context, questionID int) (io.ReadCloser, types.SampleBundle, error) {
	question, err := s.questions.Get(ctx, questionID)
	if err != nil {
		return nil, types.SampleBundle{}, err
	}
	bundle := question.SampleBundle
	if s.storage == nil || bundle.ObjectKey == "" {
		return nil, types.SampleBundle{}, store.ErrNotFound
	}
	rc, err := s.storage.Get(ctx, bundle.ObjectKey)
	if err != nil {
		return nil, types.SampleBundle{}, fmt.Errorf("open sample bundle: %w", err)
	}
	return rc, bundle, nil
}

// ParseSampleBundle reads a .tar.gz sample bundle and returns the inputs and
// outputs in case order. Problems with the bundle are ValidationErrors.
func ParseSampleBundle(filename string, data []byte) ([]string, []string, error) {
	if len(data) == 0 {
		return nil, nil, invalid("bundle", "is empty")
	}

	lower := strings.ToLower(strings.TrimSpace(filename))
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return nil, nil, invalid("bundle", "zip bundles are not supported")
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
	default:
		return nil, nil, invalid("bundle", "unsupported bundle format")
	}

	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, invalid("bundle", "invalid tar.gz bundle")
	}
	defer gr.Close()

	return readSampleTar(tar.NewReader(gr))
}

type samplePair struct {
	in, out       string
	hasIn, hasOut bool
}

func readSampleTar(tr *tar.Reader) ([]string, []string, error) {
	pairs := make(map[int]*samplePair)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, invalid("bundle", "invalid tar.gz bundle")
		}
		if header.FileInfo().IsDir() {
			continue
		}
		if !header.FileInfo().Mode().IsRegular() {
			return nil, nil, invalid("bundle", "bundle contains unsupported entries")
		}

		index, ext, err := parseSampleFilename(header.Name)
		if err != nil {
			return nil, nil, err
		}

		content, err := io.ReadAll(io.LimitReader(tr, maxSampleFileBytes+1))
		if err != nil {
			return nil, nil, invalid("bundle", "invalid tar.gz bundle")
		}
		if len(content) > maxSampleFileBytes {
			return nil, nil, invalid("bundle", fmt.Sprintf("%d.%s exceeds %d bytes", index, ext, maxSampleFileBytes))
		}

		p := pairs[index]
		if p == nil {
			if len(pairs) >= maxSampleCases {
				return nil, nil, invalid("bundle", fmt.Sprintf("more than %d sample cases", maxSampleCases))
			}
			p = &samplePair{}
			pairs[index] = p
		}
		switch ext {
		case "in":
			if p.hasIn {
				return nil, nil, invalid("bundle", fmt.Sprintf("duplicate sample input: %d.in", index))
			}
			p.in, p.hasIn = string(content), true
		case "out":
			if p.hasOut {
				return nil, nil, invalid("bundle", fmt.Sprintf("duplicate sample output: %d.out", index))
			}
			p.out, p.hasOut = string(content), true
		}
	}

	if len(pairs) == 0 {
		return nil, nil, invalid("bundle", "bundle has no sample cases")
	}

	indices := make([]int, 0, len(pairs))
	for index, p := range pairs {
		if !p.hasIn || !p.hasOut {
			return nil, nil, invalid("bundle", fmt.Sprintf("sample %d must have both .in and .out files", index))
		}
		indices = append(indices, index)
	}
	sort.Ints(indices)

	inputs := make([]string, len(indices))
	outputs := make([]string, len(indices))
	for expected, index := range indices {
		if index != expected {
			return nil, nil, invalid("bundle", "sample numbering must be consecutive from 0")
		}
		inputs[index] = pairs[index].in
		outputs[index] = pairs[index].out
	}
	return inputs, outputs, nil
}

func parseSampleFilename(name string) (int, string, error) {
	clean := path.Clean(name)
	if clean == "." || strings.Contains(clean, `\`) {
		return 0, "", invalid("bundle", "invalid sample filename")
	}
	if path.Base(clean) != clean {
		return 0, "", invalid("bundle", "bundle must not contain directories")
	}
	m := sampleFilenamePattern.FindStringSubmatch(clean)
	if m == nil {
		return 0, "", invalid("bundle", fmt.Sprintf("invalid sample filename: %s", clean))
	}
	index, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", invalid("bundle", fmt.Sprintf("invalid sample filename: %s", clean))
	}
	return index, m[2], nil
}
