package scene

import (
	"bytes"
	"errors"
	"maps"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.aimuz.me/keysound/catalog"
	"go.aimuz.me/keysound/config"
	"go.aimuz.me/keysound/internal/types"
	"golang.org/x/text/language"
)

type memStore struct {
	saves int
	last  *types.Document
	err   error
}

func (s *memStore) Save(doc *types.Document) error {
	if s.err != nil {
		return s.err
	}
	s.saves++
	s.last = doc.Clone()
	return nil
}

// fakeSounds loads every path except those listed in broken.
type fakeSounds struct {
	mu       sync.Mutex
	loaded   map[string]string
	broken   map[string]bool
	reloads  int
	warnings map[string]error
}

func newFakeSounds() *fakeSounds {
	return &fakeSounds{loaded: map[string]string{}, broken: map[string]bool{}, warnings: map[string]error{}}
}

func (f *fakeSounds) Reload(bindings map[string]string) []error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reloads++
	f.loaded = map[string]string{}
	f.warnings = map[string]error{}
	var errs []error
	for k, p := range bindings {
		if f.broken[p] {
			err := &catalog.LoadError{Key: k, Path: p, Err: errors.New("broken")}
			f.warnings[k] = err
			errs = append(errs, err)
			continue
		}
		f.loaded[k] = p
	}
	return errs
}

func (f *fakeSounds) Add(key, path string) (*catalog.Sound, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.broken[path] {
		delete(f.loaded, key)
		err := &catalog.LoadError{Key: key, Path: path, Err: errors.New("broken")}
		f.warnings[key] = err
		return nil, err
	}
	f.loaded[key] = path
	delete(f.warnings, key)
	return &catalog.Sound{Key: key, Path: path}, nil
}

func (f *fakeSounds) Remove(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.loaded, key)
	delete(f.warnings, key)
}

func (f *fakeSounds) Warnings() map[string]error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return maps.Clone(f.warnings)
}

func (f *fakeSounds) snapshot() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return maps.Clone(f.loaded)
}

type countingObserver struct {
	bindings, scenes int
}

func (o *countingObserver) StatusChanged(string) {}
func (o *countingObserver) BindingsChanged()     { o.bindings++ }
func (o *countingObserver) SceneListChanged()    { o.scenes++ }

type fixture struct {
	reg    *Registry
	store  *memStore
	sounds *fakeSounds
	obs    *countingObserver
}

func newFixture(t *testing.T, doc *types.Document) *fixture {
	t.Helper()
	if doc == nil {
		doc = config.DefaultDocument("Default scene")
	}
	f := &fixture{store: &memStore{}, sounds: newFakeSounds(), obs: &countingObserver{}}
	f.reg = New(doc, f.store, f.sounds, f.obs)
	return f
}

func twoScenes() *types.Document {
	doc := config.DefaultDocument("Default scene")
	doc.Put("scene_1", types.Scene{Name: "Drums", KeySounds: map[string]string{"D": "/d.wav"}})
	doc.Scenes[config.DefaultSceneID].KeySounds["A"] = "/a.wav"
	return doc
}

func TestNewLoadsActiveScene(t *testing.T) {
	f := newFixture(t, twoScenes())
	assert.Equal(t, map[string]string{"A": "/a.wav"}, f.sounds.snapshot())
	assert.Equal(t, config.DefaultSceneID, f.reg.Current())
	assert.Zero(t, f.store.saves)
}

func TestBindingsLastWriteWins(t *testing.T) {
	f := newFixture(t, nil)

	require.NoError(t, f.reg.AddBinding("a", "/one.wav"))
	require.NoError(t, f.reg.AddBinding("B", "/two.wav"))
	require.NoError(t, f.reg.AddBinding("A", "/three.wav"))
	require.NoError(t, f.reg.RemoveBinding("b"))
	require.NoError(t, f.reg.RemoveBinding("Z"))

	want := map[string]string{"A": "/three.wav"}
	assert.Equal(t, want, f.reg.Bindings())
	assert.Equal(t, want, f.sounds.snapshot())
	assert.Equal(t, want, f.store.last.Scenes[config.DefaultSceneID].KeySounds)
	assert.Equal(t, 4, f.store.saves, "removing an unbound key does not persist")

	path, ok := f.reg.Binding("a")
	assert.True(t, ok)
	assert.Equal(t, "/three.wav", path)
}

func TestAddBindingRejects(t *testing.T) {
	f := newFixture(t, nil)

	assert.ErrorIs(t, f.reg.AddBinding("space", "/s.wav"), ErrStopKeyConflict)
	assert.ErrorIs(t, f.reg.AddBinding("  ", "/s.wav"), ErrInvalidKey)
	assert.ErrorIs(t, f.reg.AddBinding("A", " "), ErrInvalidFormat)
	assert.Empty(t, f.reg.Bindings())
	assert.Zero(t, f.store.saves)
}

func TestAddBindingKeepsBrokenSound(t *testing.T) {
	f := newFixture(t, nil)
	f.sounds.broken["/missing.wav"] = true

	err := f.reg.AddBinding("Q", "/missing.wav")
	require.ErrorIs(t, err, catalog.ErrResourceLoad)

	assert.Equal(t, map[string]string{"Q": "/missing.wav"}, f.reg.Bindings())
	assert.Equal(t, 1, f.store.saves)
	assert.Contains(t, f.reg.Warnings(), "Q")
	assert.Equal(t, 1, f.obs.bindings)
}

func TestSwitchSceneRoundTrip(t *testing.T) {
	f := newFixture(t, twoScenes())
	require.NoError(t, f.reg.AddBinding("B", "/b.wav"))
	before := f.reg.Bindings()

	require.NoError(t, f.reg.SwitchScene("scene_1"))
	assert.Equal(t, map[string]string{"D": "/d.wav"}, f.reg.Bindings())
	assert.Equal(t, map[string]string{"D": "/d.wav"}, f.sounds.snapshot())

	require.NoError(t, f.reg.SwitchScene(config.DefaultSceneID))
	assert.Equal(t, before, f.reg.Bindings())
	assert.Equal(t, before, f.sounds.snapshot())
	assert.Equal(t, config.DefaultSceneID, f.store.last.CurrentScene)
}

func TestSwitchSceneUnknown(t *testing.T) {
	f := newFixture(t, twoScenes())
	reloads := f.sounds.reloads

	require.ErrorIs(t, f.reg.SwitchScene("nope"), ErrSceneNotFound)
	assert.Equal(t, config.DefaultSceneID, f.reg.Current())
	assert.Equal(t, reloads, f.sounds.reloads)
	assert.Zero(t, f.store.saves)
}

func TestAddScene(t *testing.T) {
	f := newFixture(t, twoScenes())

	require.NoError(t, f.reg.AddScene("live", "Live set"))
	assert.Equal(t, "live", f.reg.Current())
	assert.Empty(t, f.reg.Bindings())
	assert.Empty(t, f.sounds.snapshot())

	require.ErrorIs(t, f.reg.AddScene("live", "Again"), ErrSceneExists)
	require.ErrorIs(t, f.reg.AddScene(" ", "Blank"), ErrInvalidFormat)
	require.ErrorIs(t, f.reg.AddScene("bad\xff", "Bytes"), ErrInvalidFormat)

	require.NoError(t, f.reg.AddScene("bare", ""))
	s, ok := f.reg.Scene("bare")
	require.True(t, ok)
	assert.Equal(t, "bare", s.Name)

	var ids []string
	for _, info := range f.reg.Scenes() {
		ids = append(ids, info.ID)
	}
	assert.Equal(t, []string{config.DefaultSceneID, "scene_1", "live", "bare"}, ids)
}

func TestRemoveLastSceneFails(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.reg.AddBinding("A", "/a.wav"))
	saves := f.store.saves

	require.ErrorIs(t, f.reg.RemoveScene(config.DefaultSceneID), ErrLastScene)
	assert.Len(t, f.reg.Scenes(), 1)
	assert.Equal(t, map[string]string{"A": "/a.wav"}, f.reg.Bindings())
	assert.Equal(t, saves, f.store.saves)
}

func TestRemoveScene(t *testing.T) {
	f := newFixture(t, twoScenes())

	require.ErrorIs(t, f.reg.RemoveScene("nope"), ErrSceneNotFound)

	require.NoError(t, f.reg.RemoveScene("scene_1"))
	assert.Equal(t, config.DefaultSceneID, f.reg.Current())
	assert.Len(t, f.reg.Scenes(), 1)
}

func TestRemoveActiveSceneFallsBack(t *testing.T) {
	f := newFixture(t, twoScenes())
	require.NoError(t, f.reg.AddScene("extra", "Extra"))

	require.NoError(t, f.reg.RemoveScene("extra"))
	assert.Equal(t, config.DefaultSceneID, f.reg.Current(), "first scene in document order")
	assert.Equal(t, map[string]string{"A": "/a.wav"}, f.sounds.snapshot())
	assert.Equal(t, config.DefaultSceneID, f.store.last.CurrentScene)
}

func TestSetStopKey(t *testing.T) {
	f := newFixture(t, twoScenes())

	require.ErrorIs(t, f.reg.SetStopKey("a"), ErrBindingConflict)
	require.ErrorIs(t, f.reg.SetStopKey(""), ErrInvalidKey)
	assert.Equal(t, types.DefaultStopKey, f.reg.Settings().StopKey)

	require.NoError(t, f.reg.SetStopKey("escape"))
	assert.Equal(t, "ESC", f.reg.Settings().StopKey)
	assert.Equal(t, "ESC", f.store.last.StopKey)

	// The old stop key becomes bindable.
	require.NoError(t, f.reg.AddBinding("SPACE", "/space.wav"))
}

func TestSettingToggles(t *testing.T) {
	f := newFixture(t, nil)

	require.NoError(t, f.reg.SetStopOnUnbound(false))
	require.NoError(t, f.reg.SetLongPressOptimize(false))

	s := f.reg.Settings()
	assert.False(t, s.StopOnUnbound)
	assert.False(t, s.LongPressOptimize)
	assert.False(t, f.store.last.StopOnUnbound)
	assert.False(t, f.store.last.LongPressOptimize)
}

func TestImportScene(t *testing.T) {
	doc := config.DefaultDocument("Default scene")
	doc.Put("scene_1", types.Scene{Name: "One", KeySounds: map[string]string{}})
	doc.Put("scene_2", types.Scene{Name: "Two", KeySounds: map[string]string{}})
	f := newFixture(t, doc)

	id, err := f.reg.ImportScene(strings.NewReader(`{"name":"S","key_sounds":{"A":"/x.wav"}}`))
	require.NoError(t, err)
	assert.Equal(t, "scene_3", id)

	s, ok := f.reg.Scene(id)
	require.True(t, ok)
	assert.Equal(t, "S", s.Name)
	assert.Equal(t, map[string]string{"A": "/x.wav"}, s.KeySounds)
	assert.Equal(t, config.DefaultSceneID, f.reg.Current(), "import does not switch")
	assert.Equal(t, "scene_4", f.reg.NextSceneID())
}

func TestImportSceneCollision(t *testing.T) {
	doc := config.DefaultDocument("Default scene")
	doc.Put("scene_2", types.Scene{Name: "Taken", KeySounds: map[string]string{}})
	doc.Put("scene_3", types.Scene{Name: "Taken too", KeySounds: map[string]string{}})
	f := newFixture(t, doc)

	id, err := f.reg.ImportScene(strings.NewReader(`{"name":"S","key_sounds":{}}`))
	require.NoError(t, err)
	assert.Equal(t, "scene_4", id)
}

func TestImportSceneInvalid(t *testing.T) {
	f := newFixture(t, nil)

	for _, in := range []string{`[]`, `{"name":"S"}`, `{"key_sounds":{}}`, `not json`} {
		_, err := f.reg.ImportScene(strings.NewReader(in))
		assert.ErrorIs(t, err, ErrInvalidFormat, in)
	}
	assert.Len(t, f.reg.Scenes(), 1)
	assert.Zero(t, f.store.saves)
}

func TestExportScene(t *testing.T) {
	f := newFixture(t, twoScenes())
	require.NoError(t, f.reg.AddBinding("B", "/b.wav"))

	var buf bytes.Buffer
	require.NoError(t, f.reg.ExportScene(config.DefaultSceneID, &buf))

	s, err := config.DecodeScene(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "Default scene", s.Name)
	assert.Equal(t, map[string]string{"A": "/a.wav", "B": "/b.wav"}, s.KeySounds)

	require.ErrorIs(t, f.reg.ExportScene("nope", &buf), ErrSceneNotFound)
}

func TestExportImportConfig(t *testing.T) {
	src := newFixture(t, twoScenes())
	require.NoError(t, src.reg.SetStopKey("ESC"))
	require.NoError(t, src.reg.SwitchScene("scene_1"))

	var buf bytes.Buffer
	require.NoError(t, src.reg.ExportConfig(&buf))

	dst := newFixture(t, nil)
	require.NoError(t, dst.reg.ImportConfig(&buf))

	assert.Equal(t, "scene_1", dst.reg.Current())
	assert.Equal(t, "ESC", dst.reg.Settings().StopKey)
	assert.Equal(t, map[string]string{"D": "/d.wav"}, dst.sounds.snapshot())
	assert.Equal(t, src.reg.Scenes(), dst.reg.Scenes())
	assert.Equal(t, 1, dst.store.saves)
}

func TestImportConfigInvalidLeavesState(t *testing.T) {
	f := newFixture(t, twoScenes())

	err := f.reg.ImportConfig(strings.NewReader(`{"current_scene":"x","scenes":{}}`))
	require.ErrorIs(t, err, ErrInvalidFormat)
	assert.Len(t, f.reg.Scenes(), 2)
	assert.Zero(t, f.store.saves)
}

func TestSaveFailureIsReported(t *testing.T) {
	f := newFixture(t, nil)
	f.store.err = errors.New("disk full")

	err := f.reg.AddBinding("A", "/a.wav")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestObserverNotified(t *testing.T) {
	f := newFixture(t, twoScenes())

	require.NoError(t, f.reg.AddBinding("B", "/b.wav"))
	require.NoError(t, f.reg.SwitchScene("scene_1"))
	_, err := f.reg.ImportScene(strings.NewReader(`{"name":"S","key_sounds":{}}`))
	require.NoError(t, err)

	assert.Equal(t, 2, f.obs.bindings)
	assert.Equal(t, 2, f.obs.scenes)
}

func TestRegistryWithFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	store := config.NewStore(path, language.English)

	doc, err := store.Load()
	require.NoError(t, err)

	reg := New(doc, store, newFakeSounds(), nil)
	require.NoError(t, reg.AddBinding("F1", "/f1.wav"))
	require.NoError(t, reg.AddScene("night", "Night"))

	reloaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "night", reloaded.CurrentScene)
	assert.Equal(t, []string{config.DefaultSceneID, "night"}, reloaded.Order)
	assert.Equal(t, map[string]string{"F1": "/f1.wav"}, reloaded.Scenes[config.DefaultSceneID].KeySounds)
}

func TestRegistryWithFileStoreOddSceneID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	store := config.NewStore(path, language.English)

	doc, err := store.Load()
	require.NoError(t, err)

	reg := New(doc, store, newFakeSounds(), nil)
	require.NoError(t, reg.AddScene(":z", "Colon"))
	require.NoError(t, reg.AddBinding("A", "/a.wav"))

	reloaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, ":z", reloaded.CurrentScene)
	assert.Equal(t, []string{config.DefaultSceneID, ":z"}, reloaded.Order)
	assert.Equal(t, map[string]string{"A": "/a.wav"}, reloaded.Scenes[":z"].KeySounds)
}
