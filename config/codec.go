package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
	"go.aimuz.me/keysound/internal/types"
	"go.aimuz.me/keysound/keys"
)

// DefaultSceneID is the id of the scene created for new and migrated documents.
const DefaultSceneID = "default"

// ErrInvalidFormat is returned when an imported document or scene does not
// have the expected shape.
var ErrInvalidFormat = errors.New("invalid format")

// requiredFields are the top-level fields a full configuration import must
// carry, with a check of their JSON type.
var requiredFields = map[string]func(gjson.Result) bool{
	"current_scene":       isString,
	"scenes":              gjson.Result.IsObject,
	"stop_key":            isString,
	"stop_on_unbound":     gjson.Result.IsBool,
	"long_press_optimize": gjson.Result.IsBool,
}

func isString(v gjson.Result) bool { return v.Type == gjson.String }

var prettyOptions = &pretty.Options{Width: 80, Indent: "    "}

// DefaultDocument returns a document holding one empty scene and default settings.
func DefaultDocument(sceneName string) *types.Document {
	doc := &types.Document{
		CurrentScene: DefaultSceneID,
		Settings:     types.DefaultSettings(),
	}
	doc.Put(DefaultSceneID, types.Scene{Name: sceneName, KeySounds: map[string]string{}})
	return doc
}

// DecodeDocument parses a persisted document. Documents written before scenes
// existed (a flat key_sounds map) are migrated into a single scene named
// sceneName. Scene order follows the document.
func DecodeDocument(data []byte, sceneName string) (*types.Document, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("malformed json")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, errors.New("document is not an object")
	}

	doc := &types.Document{Settings: decodeSettings(root)}

	scenes := root.Get("scenes")
	switch {
	case !scenes.Exists() && root.Get("key_sounds").Exists():
		ks := root.Get("key_sounds")
		if !ks.IsObject() {
			return nil, errors.New("key_sounds is not an object")
		}
		doc.Put(DefaultSceneID, types.Scene{Name: sceneName, KeySounds: decodeBindings(ks)})
		doc.CurrentScene = DefaultSceneID
		return doc, nil
	case scenes.Exists():
		if !scenes.IsObject() {
			return nil, errors.New("scenes is not an object")
		}
		var err error
		scenes.ForEach(func(id, value gjson.Result) bool {
			var s types.Scene
			s, err = decodeScene(value)
			if err != nil {
				err = fmt.Errorf("scene %q: %w", id.String(), err)
				return false
			}
			doc.Put(id.String(), s)
			return true
		})
		if err != nil {
			return nil, err
		}
	}

	if len(doc.Order) == 0 {
		doc.Put(DefaultSceneID, types.Scene{Name: sceneName, KeySounds: map[string]string{}})
	}

	doc.CurrentScene = root.Get("current_scene").String()
	if !doc.Has(doc.CurrentScene) {
		doc.CurrentScene = doc.Order[0]
	}
	return doc, nil
}

// DecodeConfig parses a full configuration import. Unlike DecodeDocument it
// requires every top-level field and at least one scene.
func DecodeConfig(data []byte) (*types.Document, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: malformed json", ErrInvalidFormat)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: not an object", ErrInvalidFormat)
	}
	for _, f := range slices.Sorted(maps.Keys(requiredFields)) {
		v := root.Get(f)
		if !v.Exists() {
			return nil, fmt.Errorf("%w: missing %s", ErrInvalidFormat, f)
		}
		if want := requiredFields[f]; !want(v) {
			return nil, fmt.Errorf("%w: %s has the wrong type", ErrInvalidFormat, f)
		}
	}
	if s := root.Get("scenes"); !s.IsObject() || len(s.Map()) == 0 {
		return nil, fmt.Errorf("%w: scenes must be a non-empty object", ErrInvalidFormat)
	}

	doc, err := DecodeDocument(data, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return doc, nil
}

// EncodeDocument serializes the document with four-space indentation,
// keeping scenes in document order.
func EncodeDocument(doc *types.Document) ([]byte, error) {
	out := []byte(`{}`)
	var err error

	if out, err = sjson.SetBytes(out, "current_scene", doc.CurrentScene); err != nil {
		return nil, fmt.Errorf("set current_scene: %w", err)
	}
	scenes, err := encodeScenes(doc)
	if err != nil {
		return nil, err
	}
	if out, err = sjson.SetRawBytes(out, "scenes", scenes); err != nil {
		return nil, fmt.Errorf("set scenes: %w", err)
	}
	if out, err = sjson.SetBytes(out, "stop_key", doc.StopKey); err != nil {
		return nil, fmt.Errorf("set stop_key: %w", err)
	}
	if out, err = sjson.SetBytes(out, "stop_on_unbound", doc.StopOnUnbound); err != nil {
		return nil, fmt.Errorf("set stop_on_unbound: %w", err)
	}
	if out, err = sjson.SetBytes(out, "long_press_optimize", doc.LongPressOptimize); err != nil {
		return nil, fmt.Errorf("set long_press_optimize: %w", err)
	}

	return pretty.PrettyOptions(out, prettyOptions), nil
}

// encodeScenes builds the scenes object in document order. Ids are written
// as JSON strings rather than sjson paths, so any id survives a round trip.
func encodeScenes(doc *types.Document) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range doc.Order {
		key, err := marshalRaw(id)
		if err != nil {
			return nil, fmt.Errorf("marshal scene id %q: %w", id, err)
		}
		raw, err := marshalRaw(sceneJSON(doc.Scenes[id]))
		if err != nil {
			return nil, fmt.Errorf("marshal scene %q: %w", id, err)
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(raw)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// DecodeScene parses an exported scene file: {"name": ..., "key_sounds": {...}}.
func DecodeScene(data []byte) (types.Scene, error) {
	if !gjson.ValidBytes(data) {
		return types.Scene{}, fmt.Errorf("%w: malformed json", ErrInvalidFormat)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return types.Scene{}, fmt.Errorf("%w: not an object", ErrInvalidFormat)
	}
	if name := root.Get("name"); name.Type != gjson.String {
		return types.Scene{}, fmt.Errorf("%w: name must be a string", ErrInvalidFormat)
	}
	if !root.Get("key_sounds").IsObject() {
		return types.Scene{}, fmt.Errorf("%w: key_sounds must be an object", ErrInvalidFormat)
	}
	s, err := decodeScene(root)
	if err != nil {
		return types.Scene{}, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return s, nil
}

// EncodeScene serializes one scene in the export format.
func EncodeScene(s types.Scene) ([]byte, error) {
	raw, err := marshalRaw(sceneJSON(s))
	if err != nil {
		return nil, fmt.Errorf("marshal scene: %w", err)
	}
	return pretty.PrettyOptions(raw, prettyOptions), nil
}

func decodeScene(v gjson.Result) (types.Scene, error) {
	if !v.IsObject() {
		return types.Scene{}, errors.New("scene is not an object")
	}
	s := types.Scene{Name: v.Get("name").String(), KeySounds: map[string]string{}}
	if ks := v.Get("key_sounds"); ks.Exists() {
		if !ks.IsObject() {
			return types.Scene{}, errors.New("key_sounds is not an object")
		}
		s.KeySounds = decodeBindings(ks)
	}
	return s, nil
}

func decodeBindings(v gjson.Result) map[string]string {
	out := make(map[string]string)
	v.ForEach(func(key, value gjson.Result) bool {
		if k := keys.Normalize(key.String()); k != "" {
			out[k] = value.String()
		}
		return true
	})
	return out
}

func decodeSettings(root gjson.Result) types.Settings {
	s := types.DefaultSettings()
	if v := root.Get("stop_key"); v.Type == gjson.String {
		if k := keys.Normalize(v.String()); k != "" {
			s.StopKey = k
		}
	}
	if v := root.Get("stop_on_unbound"); v.IsBool() {
		s.StopOnUnbound = v.Bool()
	}
	if v := root.Get("long_press_optimize"); v.IsBool() {
		s.LongPressOptimize = v.Bool()
	}
	return s
}

// sceneJSON fixes the field order of a serialized scene.
func sceneJSON(s types.Scene) types.Scene {
	if s.KeySounds == nil {
		s.KeySounds = map[string]string{}
	}
	return s
}

// marshalRaw encodes v without HTML escaping so non-ASCII names and paths
// stay readable.
func marshalRaw(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
