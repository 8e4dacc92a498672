package assets

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/vecsandbox/engine/assets/loaders"
	"github.com/spaghettifunk/vecsandbox/engine/core"
)

type AssetInfo struct {
	Path       string
	Type       AssetType
	LastLoaded time.Time
}

// AssetManager resolves mesh and shader names below an assets directory and
// watches that directory for changes.
type AssetManager struct {
	root    string
	assets  map[string]AssetInfo
	changed map[string]struct{}

	meshes  MeshLoader
	shaders ShaderLoader

	mutex sync.RWMutex

	done     chan struct{}
	stopped  chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
	started  bool
}

func NewAssetManager() (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &AssetManager{
		assets:   make(map[string]AssetInfo),
		changed:  make(map[string]struct{}),
		meshes:   &loaders.MeshLoader{},
		shaders:  &loaders.ShaderLoader{},
		fsnotify: fsWatch,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}, nil
}

func (am *AssetManager) Initialize(assetsDir string) error {
	am.root = filepath.Clean(assetsDir)

	if err := am.addRecursive(am.root); err != nil {
		return err
	}
	am.started = true
	go am.start()

	core.LogInfo("Asset manager watching `%s` (%d assets).", am.root, am.Len())
	return nil
}

// ReadMesh loads `meshes/<name>` from the assets directory.
func (am *AssetManager) ReadMesh(name string) ([]byte, []byte, error) {
	path := filepath.Join(am.root, meshDir, name)
	mesh, err := am.meshes.Load(path)
	if err != nil {
		return nil, nil, err
	}
	am.touch(path, AssetTypeMesh)
	return mesh.Vertices, mesh.Indices, nil
}

// ReadShader loads `shaders/<name>` from the assets directory.
func (am *AssetManager) ReadShader(name string) ([]uint32, error) {
	path := filepath.Join(am.root, shaderDir, name)
	code, err := am.shaders.Load(path)
	if err != nil {
		return nil, err
	}
	am.touch(path, AssetTypeShader)
	return code, nil
}

// Lookup returns the index entry of a watched asset.
func (am *AssetManager) Lookup(path string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[filepath.Clean(path)]
	return info, ok
}

func (am *AssetManager) Len() int {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return len(am.assets)
}

// PumpChanges fires one EVENT_CODE_ASSET_CHANGED per asset modified since the
// previous call. It runs on the caller's goroutine, so listeners may touch
// renderer state.
func (am *AssetManager) PumpChanges(bus *core.EventBus) int {
	am.mutex.Lock()
	if len(am.changed) == 0 {
		am.mutex.Unlock()
		return 0
	}
	paths := make([]string, 0, len(am.changed))
	for p := range am.changed {
		paths = append(paths, p)
	}
	clear(am.changed)
	am.mutex.Unlock()

	for _, p := range paths {
		core.LogDebug("asset changed: %s", p)
		bus.Fire(core.EventContext{
			Type: core.EVENT_CODE_ASSET_CHANGED,
			Data: &core.AssetEvent{Path: p},
		})
	}
	return len(paths)
}

func (am *AssetManager) Shutdown() error {
	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return nil
	}
	am.isClosed = true
	am.mutex.Unlock()

	if !am.started {
		return am.fsnotify.Close()
	}
	close(am.done)
	<-am.stopped
	return nil
}

// AddRecursive starts watching the named directory and all sub-directories.
func (am *AssetManager) addRecursive(name string) error {
	if am.isClosed {
		return errors.New("asset watcher already closed")
	}
	return am.watchRecursive(name, false)
}

func (am *AssetManager) touch(path string, assetType AssetType) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.assets[filepath.Clean(path)] = AssetInfo{
		Path:       filepath.Clean(path),
		Type:       assetType,
		LastLoaded: time.Now(),
	}
}

func (am *AssetManager) start() {
	defer close(am.stopped)
	for {
		select {

		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					if err := am.watchRecursive(e.Name, false); err != nil {
						core.LogWarn("failed to watch `%s`: %s", e.Name, err)
					}
				}
				continue
			}
			// Handle create or modify events
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				if am.handleFileEvent(e.Name) {
					am.markChanged(e.Name)
				}
			}
			// Can't stat a deleted path, so just try to remove it from the watch list.
			if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				am.removeAsset(e.Name)
				_ = am.fsnotify.Remove(e.Name)
			}

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err)

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

// watchRecursive adds all directories under the given one to the watch list.
func (am *AssetManager) watchRecursive(path string, unWatch bool) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if unWatch {
				return am.fsnotify.Remove(walkPath)
			}
			return am.fsnotify.Add(walkPath)
		}
		am.handleFileEvent(walkPath)
		return nil
	})
}

// Handle the creation or modification of a file. Reports whether the file is a known asset type.
func (am *AssetManager) handleFileEvent(path string) bool {
	assetType := determineAssetType(path)
	if assetType == AssetTypeNone {
		return false
	}
	am.mutex.Lock()
	defer am.mutex.Unlock()

	path = filepath.Clean(path)
	info := am.assets[path]
	info.Path = path
	info.Type = assetType
	am.assets[path] = info
	return true
}

func (am *AssetManager) markChanged(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.changed[filepath.Clean(path)] = struct{}{}
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	delete(am.assets, filepath.Clean(path))
}

func determineAssetType(path string) AssetType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tka":
		return AssetTypeMesh
	case ".spv":
		return AssetTypeShader
	default:
		return AssetTypeNone
	}
}

// ShaderName returns the name a pipeline uses for a shader path, or "" when
// path is not a shader.
func ShaderName(path string) string {
	if determineAssetType(path) != AssetTypeShader {
		return ""
	}
	return filepath.Base(path)
}
