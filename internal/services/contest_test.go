package services

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jjudge-oj/contestjudge/internal/storage"
	"github.com/jjudge-oj/contestjudge/internal/store"
	"github.com/jjudge-oj/contestjudge/types"
)

func validContest() types.Contest {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return types.Contest{Name: "Spring Qualifier", Duration: 90, StartAt: start, EndAt: start.Add(6 * time.Hour)}
}

func TestContestValidation(t *testing.T) {
	svc := NewContestService(newFakeContests(), newFakeQuestions(), nil, nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*types.Contest)
		field  string
	}{
		{"blank name", func(c *types.Contest) { c.Name = "  " }, "name"},
		{"zero duration", func(c *types.Contest) { c.Duration = 0 }, "duration"},
		{"missing start", func(c *types.Contest) { c.StartAt = time.Time{} }, "start_at"},
		{"end before start", func(c *types.Contest) { c.EndAt = c.StartAt.Add(-time.Minute) }, "end_at"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validContest()
			tt.mutate(&c)
			_, err := svc.Create(ctx, c)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	created, err := svc.Create(ctx, validContest())
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
}

func TestContestQuestionsByScope(t *testing.T) {
	contests := newFakeContests(types.Contest{ID: 1, Name: "c"})
	questions := newFakeQuestions(
		types.Question{ID: 1, ContestID: 1, Level: 1},
		types.Question{ID: 2, ContestID: 1, Level: 2},
		types.Question{ID: 3, ContestID: 1, Level: 7},
		types.Question{ID: 4, ContestID: 1, Level: 0},
	)
	svc := NewContestService(contests, questions, nil, nil)
	ctx := context.Background()

	ids := func(qs []types.Question) []int {
		out := make([]int, len(qs))
		for i, q := range qs {
			out[i] = q.ID
		}
		return out
	}

	all, err := svc.Questions(ctx, 1, "")
	require.NoError(t, err)
	assert.Equal(t, []int{4, 1, 2, 3}, ids(all))

	two, err := svc.Questions(ctx, 1, "2")
	require.NoError(t, err)
	assert.Equal(t, []int{2}, ids(two))

	other, err := svc.Questions(ctx, 1, types.LevelOther)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 3}, ids(other))

	_, err = svc.Questions(ctx, 99, "")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateQuestionRequiresContestAndMatchingSamples(t *testing.T) {
	svc := NewContestService(newFakeContests(types.Contest{ID: 1, Name: "c"}), newFakeQuestions(), nil, nil)
	ctx := context.Background()

	q := types.Question{ContestID: 1, Title: "Sum", Description: "Add two numbers", SampleInputs: []string{"1 2"}, SampleOutputs: []string{"3", "4"}}
	_, err := svc.CreateQuestion(ctx, q)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "sample_outputs", verr.Field)

	q.SampleOutputs = []string{"3"}
	q.ContestID = 2
	_, err = svc.CreateQuestion(ctx, q)
	assert.ErrorIs(t, err, store.ErrNotFound)

	q.ContestID = 1
	created, err := svc.CreateQuestion(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 1, created.ID)
}

func TestUpdateQuestionKeepsSampleBundle(t *testing.T) {
	bundle := types.SampleBundle{ObjectKey: "questions/1/samples-abc.tar.gz", SHA256: "abc"}
	questions := newFakeQuestions(types.Question{ID: 1, ContestID: 1, Title: "Sum", Description: "d", SampleBundle: bundle})
	svc := NewContestService(newFakeContests(types.Contest{ID: 1}), questions, nil, nil)

	updated, err := svc.UpdateQuestion(context.Background(), types.Question{ID: 1, Title: "Sum v2", Description: "d"})
	require.NoError(t, err)
	assert.Equal(t, "Sum v2", updated.Title)
	assert.Equal(t, bundle, updated.SampleBundle)
}

type bundleEntry struct {
	name    string
	content string
}

func buildBundle(t *testing.T, entries ...bundleEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, e := range entries {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: e.name, Mode: 0o644, Size: int64(len(e.content)), Typeflag: tar.TypeReg}))
		_, err := tw.Write([]byte(e.content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func TestParseSampleBundle(t *testing.T) {
	data := buildBundle(t,
		bundleEntry{"1.in", "5 7"},
		bundleEntry{"0.in", "1 2"},
		bundleEntry{"0.out", "3\n"},
		bundleEntry{"1.out", "12"},
	)

	inputs, outputs, err := ParseSampleBundle("samples.tar.gz", data)
	require.NoError(t, err)
	assert.Equal(t, []string{"1 2", "5 7"}, inputs)
	assert.Equal(t, []string{"3\n", "12"}, outputs)
}

func TestParseSampleBundleRejects(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		entries  []bundleEntry
		reason   string
	}{
		{"zip", "samples.zip", []bundleEntry{{"0.in", "a"}, {"0.out", "b"}}, "zip bundles are not supported"},
		{"missing output", "s.tgz", []bundleEntry{{"0.in", "a"}}, "sample 0 must have both .in and .out files"},
		{"gap", "s.tgz", []bundleEntry{{"0.in", "a"}, {"0.out", "b"}, {"2.in", "c"}, {"2.out", "d"}}, "sample numbering must be consecutive from 0"},
		{"bad name", "s.tgz", []bundleEntry{{"input0.txt", "a"}}, "invalid sample filename: input0.txt"},
		{"directory", "s.tgz", []bundleEntry{{"cases/0.in", "a"}}, "bundle must not contain directories"},
		{"duplicate", "s.tgz", []bundleEntry{{"0.in", "a"}, {"0.in", "b"}}, "duplicate sample input: 0.in"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseSampleBundle(tt.filename, buildBundle(t, tt.entries...))
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.reason, verr.Reason)
		})
	}

	_, _, err := ParseSampleBundle("s.tar.gz", []byte("not gzip"))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestImportSamplesArchivesBundle(t *testing.T) {
	questions := newFakeQuestions(types.Question{ID: 4, ContestID: 1, Title: "Sum", Description: "d", SampleInput: "legacy"})
	objects := storage.NewMemoryObjectStorage("contestjudge")
	svc := NewContestService(newFakeContests(types.Contest{ID: 1}), questions, storage.NewStorage(objects), nil)
	ctx := context.Background()

	data := buildBundle(t, bundleEntry{"0.in", "1 2"}, bundleEntry{"0.out", "3"})
	updated, err := svc.ImportSamples(ctx, 4, "samples.tar.gz", data)
	require.NoError(t, err)

	assert.Equal(t, []string{"1 2"}, updated.SampleInputs)
	assert.Equal(t, []string{"3"}, updated.SampleOutputs)
	require.NotEmpty(t, updated.SampleBundle.SHA256)
	assert.Equal(t, fmt.Sprintf("questions/4/samples-%s.tar.gz", updated.SampleBundle.SHA256), updated.SampleBundle.ObjectKey)

	exists, err := objects.Exists(ctx, updated.SampleBundle.ObjectKey)
	require.NoError(t, err)
	assert.True(t, exists)

	// Re-importing identical bytes is a no-op for storage.
	again, err := svc.ImportSamples(ctx, 4, "samples.tar.gz", data)
	require.NoError(t, err)
	assert.Equal(t, updated.SampleBundle, again.SampleBundle)
}

func TestSampleBundleLifecycle(t *testing.T) {
	questions := newFakeQuestions(types.Question{ID: 4, ContestID: 1, Title: "Sum", Description: "d"})
	objects := storage.NewMemoryObjectStorage("contestjudge")
	svc := NewContestService(newFakeContests(types.Contest{ID: 1}), questions, storage.NewStorage(objects), nil)
	ctx := context.Background()

	_, _, err := svc.SampleBundle(ctx, 4)
	assert.ErrorIs(t, err, store.ErrNotFound)

	first := buildBundle(t, bundleEntry{"0.in", "1 2"}, bundleEntry{"0.out", "3"})
	imported, err := svc.ImportSamples(ctx, 4, "samples.tar.gz", first)
	require.NoError(t, err)

	rc, bundle, err := svc.SampleBundle(ctx, 4)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, first, got)
	assert.Equal(t, imported.SampleBundle, bundle)

	// A new bundle replaces the archived one.
	second := buildBundle(t, bundleEntry{"0.in", "5 7"}, bundleEntry{"0.out", "12"})
	replaced, err := svc.ImportSamples(ctx, 4, "samples.tar.gz", second)
	require.NoError(t, err)
	require.NotEqual(t, imported.SampleBundle.ObjectKey, replaced.SampleBundle.ObjectKey)

	exists, err := objects.Exists(ctx, imported.SampleBundle.ObjectKey)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, svc.DeleteQuestion(ctx, 4))
	exists, err = objects.Exists(ctx, replaced.SampleBundle.ObjectKey)
	require.NoError(t, err)
	assert.False(t, exists)

	assert.ErrorIs(t, svc.DeleteQuestion(ctx, 4), store.ErrNotFound)
}

func TestImportSamplesWithoutStorage(t *testing.T) {
	questions := newFakeQuestions(types.Question{ID: 4, ContestID: 1, Title: "Sum", Description: "d"})
	svc := NewContestService(newFakeContests(types.Contest{ID: 1}), questions, nil, nil)

	data := buildBundle(t, bundleEntry{"0.in", "x"}, bundleEntry{"0.out", "y"})
	updated, err := svc.ImportSamples(context.Background(), 4, "s.tgz", data)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, updated.SampleInputs)

	_, err = svc.ImportSamples(context.Background(), 9, "s.tgz", data)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUserServiceIsAdmin(t *testing.T) {
	users := &fakeUsers{users: map[int]types.User{
		1: {ID: 1, Email: "root@example.com", Role: "Admin"},
		2: {ID: 2, Email: "alice@example.com", Role: "user"},
	}}
	svc := NewUserService(users, nil, "", nil)
	ctx := context.Background()

	ok, err := svc.IsAdmin(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.IsAdmin(ctx, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.IsAdmin(ctx, 3)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
