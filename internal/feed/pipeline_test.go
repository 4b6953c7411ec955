package feed

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/koustreak/realms/internal/errs"
	"github.com/koustreak/realms/internal/filestore"
	"github.com/koustreak/realms/internal/logger"
	"github.com/koustreak/realms/internal/realm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipeline(a filestore.Adapter, opts ...Option) *Pipeline {
	return NewPipeline(a, realm.DefaultTable(), append([]Option{WithLogger(logger.Nop())}, opts...)...)
}

func TestLoad_KeepsOnlyAllowedFiles(t *testing.T) {
	listing := append(files("a.jpg", "b.exe", "c.mp4", "notes.txt", "README"),
		filestore.RawListing{Name: "trips", IsDir: true},
		filestore.RawListing{Name: ".keep"},
		filestore.RawListing{Name: ".emptyFolderPlaceholder"},
	)
	p := newTestPipeline(&fakeAdapter{listing: listing})

	res := p.Load(context.Background(), realm.Visuals)

	require.True(t, res.OK())
	assert.Equal(t, []string{"a.jpg", "c.mp4"}, names(res.Items))
}

func TestLoad_OutputLengthIsPassingCount(t *testing.T) {
	tests := []struct {
		pass, fail int
	}{
		{0, 0}, {0, 5}, {4, 0}, {3, 7}, {25, 25},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_pass_%d_fail", tt.pass, tt.fail), func(t *testing.T) {
			var listing []filestore.RawListing
			for i := 0; i < tt.pass; i++ {
				listing = append(listing, files(fmt.Sprintf("song-%02d.mp3", i))...)
			}
			for i := 0; i < tt.fail; i++ {
				listing = append(listing, files(fmt.Sprintf("clip-%02d.mp4", i))...)
			}

			res := newTestPipeline(&fakeAdapter{listing: listing}).Load(context.Background(), realm.Music)

			require.True(t, res.OK())
			assert.Len(t, res.Items, tt.pass)
		})
	}
}

func TestLoad_SortIsStableAndCaseInsensitive(t *testing.T) {
	p := newTestPipeline(&fakeAdapter{listing: files("Banana.png", "apple.png", "banana.PNG")})

	res := p.Load(context.Background(), realm.Memes)

	require.True(t, res.OK())
	assert.Equal(t, []string{"apple.png", "Banana.png", "banana.PNG"}, names(res.Items))
}

func TestLoad_SortIgnoresAccents(t *testing.T) {
	p := newTestPipeline(&fakeAdapter{listing: files("zebra.mp3", "Écho.mp3", "eagle.mp3")})

	res := p.Load(context.Background(), realm.Music)

	assert.Equal(t, []string{"eagle.mp3", "Écho.mp3", "zebra.mp3"}, names(res.Items))
}

func TestLoad_EmptyRealmIsOk(t *testing.T) {
	p := newTestPipeline(&fakeAdapter{listing: []filestore.RawListing{{Name: ".keep"}, {Name: "docs", IsDir: true}}})

	res := p.Load(context.Background(), realm.Games)

	assert.True(t, res.OK())
	assert.NotNil(t, res.Items)
	assert.Empty(t, res.Items)
}

func TestLoad_ListFailureIsBackendUnavailable(t *testing.T) {
	a := &fakeAdapter{listErr: errs.New(errs.ErrKindConnectionFailed, "dial tcp: connection refused")}
	p := newTestPipeline(a)

	res := p.Load(context.Background(), realm.Movies)

	assert.False(t, res.OK())
	assert.Equal(t, errs.ErrKindBackendUnavailable, res.Kind())
	assert.Empty(t, res.Items)
	assert.Zero(t, a.resolved.Load())
}

func TestLoad_ResolveFailureDegradesOnlyThatItem(t *testing.T) {
	a := &fakeAdapter{
		listing: files("a.zip", "b.zip", "c.zip"),
		failFor: map[string]bool{"b.zip": true},
	}

	res := newTestPipeline(a).Load(context.Background(), realm.Games)

	require.True(t, res.OK())
	require.Len(t, res.Items, 3)
	assert.False(t, res.Items[0].Degraded)
	assert.True(t, res.Items[1].Degraded)
	assert.Empty(t, res.Items[1].AccessURL)
	assert.False(t, res.Items[2].Degraded)
	assert.Equal(t, "https://cdn.example.com/c.zip", res.Items[2].AccessURL)
	assert.Equal(t, 1, res.Degraded())
}

func TestLoad_AdapterPanicDegradesItem(t *testing.T) {
	a := &fakeAdapter{listing: files("a.apk", "b.apk"), panicFor: "a.apk"}

	res := newTestPipeline(a).Load(context.Background(), realm.Games)

	require.Len(t, res.Items, 2)
	assert.True(t, res.Items[0].Degraded)
	assert.False(t, res.Items[1].Degraded)
}

func TestLoad_ResolveConcurrencyIsBounded(t *testing.T) {
	for _, workers := range []int{1, 3, 6} {
		t.Run(fmt.Sprintf("%d_workers", workers), func(t *testing.T) {
			var listing []filestore.RawListing
			for i := 0; i < 30; i++ {
				listing = append(listing, files(fmt.Sprintf("img-%02d.png", i))...)
			}
			a := &fakeAdapter{
				listing: listing,
				delay:   func(filestore.RawListing) time.Duration { return 10 * time.Millisecond },
			}

			res := newTestPipeline(a, WithWorkers(workers)).Load(context.Background(), realm.Visuals)

			require.Len(t, res.Items, 30)
			assert.LessOrEqual(t, int(a.maxInFlight.Load()), workers)
			assert.Equal(t, int32(30), a.resolved.Load(), "every item resolved exactly once")
		})
	}
}

func TestLoad_DefaultWorkers(t *testing.T) {
	assert.Equal(t, DefaultWorkers, newTestPipeline(&fakeAdapter{}).Workers())
	assert.Equal(t, DefaultWorkers, newTestPipeline(&fakeAdapter{}, WithWorkers(0)).Workers())
}

func TestLoad_OrderIndependentOfCompletion(t *testing.T) {
	listing := files("a.mp4", "b.mp4", "c.mp4", "d.mp4", "e.mp4", "f.mp4", "g.mp4", "h.mp4")
	delays := map[string]time.Duration{}
	for i, item := range listing {
		// later names finish first
		delays[item.Name] = time.Duration(len(listing)-i) * 5 * time.Millisecond
	}
	a := &fakeAdapter{
		listing: listing,
		delay:   func(item filestore.RawListing) time.Duration { return delays[item.Name] },
	}

	res := newTestPipeline(a, WithWorkers(8)).Load(context.Background(), realm.Movies)

	assert.Equal(t, []string{"a.mp4", "b.mp4", "c.mp4", "d.mp4", "e.mp4", "f.mp4", "g.mp4", "h.mp4"}, names(res.Items))
	for _, it := range res.Items {
		assert.Equal(t, "https://cdn.example.com/"+it.Name, it.AccessURL)
	}
}

func TestLoad_SecretsAllowEverything(t *testing.T) {
	p := newTestPipeline(&fakeAdapter{listing: files("diary", "keys.gpg", "photo.JPG")})

	res := p.Load(context.Background(), realm.Secrets)

	require.Len(t, res.Items, 3)
	assert.Equal(t, []string{"diary", "keys.gpg", "photo.JPG"}, names(res.Items))
	assert.Equal(t, realm.CategorySecret, res.Items[0].Category)
	assert.Equal(t, realm.CategorySecret, res.Items[1].Category)
	assert.Equal(t, realm.CategoryImage, res.Items[2].Category)
}

func TestLoad_ItemFields(t *testing.T) {
	listing := []filestore.RawListing{
		{Name: "clip.webm", Size: 2048, Mime: "video/webm"},
		{Name: "song.mp3", Size: -1},
	}
	res := newTestPipeline(&fakeAdapter{listing: listing}).Load(context.Background(), realm.Visuals)
	require.Len(t, res.Items, 1)

	clip := res.Items[0]
	assert.Equal(t, uint64(2048), clip.SizeBytes)
	assert.Equal(t, "video/webm", clip.Mime)
	assert.Equal(t, realm.CategoryVideo, clip.Category)
	assert.Equal(t, realm.CategoryVideo.IconRef(), clip.IconRef)

	res = newTestPipeline(&fakeAdapter{listing: listing}).Load(context.Background(), realm.Music)
	require.Len(t, res.Items, 1)
	song := res.Items[0]
	assert.Equal(t, uint64(0), song.SizeBytes)
	assert.Equal(t, "audio/mpeg", song.Mime, "mime falls back to the extension")
	assert.Equal(t, realm.CategoryAudio, song.Category)
}

func TestLoad_UnknownRealm(t *testing.T) {
	var states []State
	hook := WithStateHook(func(_ realm.ID, s State) { states = append(states, s) })

	a := &fakeAdapter{}
	res := newTestPipeline(a, hook).Load(context.Background(), realm.ID("podcasts"))

	assert.Equal(t, errs.ErrKindInvalidInput, res.Kind())
	assert.Empty(t, res.Items)
	assert.False(t, res.LoadedAt.IsZero())
	assert.Zero(t, a.listCalls)
	assert.Empty(t, states, "an unknown realm never enters the load state machine")
}

func TestLoad_StateTransitions(t *testing.T) {
	var (
		mu     sync.Mutex
		states []State
	)
	hook := WithStateHook(func(_ realm.ID, s State) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s)
	})

	newTestPipeline(&fakeAdapter{listing: files("a.png")}, hook).Load(context.Background(), realm.Visuals)
	assert.Equal(t, []State{StateIdle, StateListing, StateFiltering, StateSorting, StateResolving, StateDone}, states)

	states = nil
	newTestPipeline(&fakeAdapter{listErr: errs.New(errs.ErrKindTimeout, "slow")}, hook).Load(context.Background(), realm.Visuals)
	assert.Equal(t, []State{StateIdle, StateListing, StateFailed}, states)

	states = nil
	newTestPipeline(&fakeAdapter{listing: files("a.txt")}, hook).Load(context.Background(), realm.Visuals)
	assert.Equal(t, []State{StateIdle, StateListing, StateFiltering, StateDone}, states)
}

func TestLoad_CancelledContextDegradesRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := newTestPipeline(&fakeAdapter{listing: files("a.png", "b.png")}).Load(ctx, realm.Visuals)

	require.Len(t, res.Items, 2)
	assert.Equal(t, 2, res.Degraded())
}

func TestFolders(t *testing.T) {
	listing := append(files("a.png"),
		filestore.RawListing{Name: "trips", IsDir: true},
		filestore.RawListing{Name: "Archive", IsDir: true},
		filestore.RawListing{Name: ".keep", IsDir: true},
	)
	p := newTestPipeline(&fakeAdapter{listing: listing})

	folders, err := p.Folders(context.Background(), realm.Visuals)
	require.NoError(t, err)
	assert.Equal(t, []string{"Archive", "trips"}, folders)

	_, err = newTestPipeline(&fakeAdapter{listErr: errs.New(errs.ErrKindUnknown, "x")}).Folders(context.Background(), realm.Visuals)
	assert.True(t, errs.IsBackendUnavailable(err))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "resolving", StateResolving.String())
	assert.Equal(t, "unknown", State(42).String())
}
