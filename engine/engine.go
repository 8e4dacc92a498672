package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spaghettifunk/vecsandbox/engine/assets"
	"github.com/spaghettifunk/vecsandbox/engine/core"
	"github.com/spaghettifunk/vecsandbox/engine/math"
	"github.com/spaghettifunk/vecsandbox/engine/platform"
	"github.com/spaghettifunk/vecsandbox/engine/renderer"
	"github.com/spaghettifunk/vecsandbox/engine/renderer/components"
	"github.com/spaghettifunk/vecsandbox/engine/renderer/headless"
	"github.com/spaghettifunk/vecsandbox/engine/renderer/vulkan"
	"github.com/spaghettifunk/vecsandbox/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

var _ renderer.Backend = (*vulkan.VulkanRenderer)(nil)

type Engine struct {
	currentStage  Stage
	gameInstance  *Game
	config        *ApplicationConfig
	backendType   renderer.RendererType
	isRunning     bool
	isSuspended   bool
	bus           *core.EventBus
	input         *core.Input
	platform      *platform.Platform
	assetManager  *assets.AssetManager
	renderer      *renderer.Renderer
	camera        *components.Camera
	systemManager *systems.SystemManager
	width         uint32
	height        uint32
	clock         *core.Clock
	metrics       *core.Metrics
	lastTime      float64
	frames        uint64
	// Camera state not yet accepted by the backend.
	frame renderer.FrameContext
}

func New(g *Game) (*Engine, error) {
	config := g.ApplicationConfig
	if config == nil {
		config = DefaultApplicationConfig()
		g.ApplicationConfig = config
	}
	backendType, err := config.RendererType()
	if err != nil {
		return nil, err
	}
	core.SetLogLevel(config.LogLevel)

	bus := core.NewEventBus()
	input := core.NewInput(bus)

	am, err := assets.NewAssetManager()
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	e := &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		config:       config,
		backendType:  backendType,
		bus:          bus,
		input:        input,
		assetManager: am,
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
		width:        config.StartWidth,
		height:       config.StartHeight,
		camera: components.NewCamera(
			math.NewVec3(config.Camera.Position[0], config.Camera.Position[1], config.Camera.Position[2]),
			config.Camera.FOV,
			float32(config.StartWidth)/float32(config.StartHeight),
		),
	}

	var backend renderer.Backend
	switch backendType {
	case renderer.Headless:
		backend = headless.New()
	default:
		if e.platform, err = platform.New(input, bus); err != nil {
			return nil, err
		}
		backend = vulkan.New(e.platform, config.Debug)
	}
	e.renderer = renderer.New(backend, am, config.Limits)

	g.EventBus = bus
	g.Input = input
	return e, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	e.bus.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	e.bus.Register(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)
	e.bus.Register(core.EVENT_CODE_RESIZED, e, e.onResized)

	if e.platform != nil {
		if err := e.platform.Startup(e.config.Name,
			e.config.StartPosX,
			e.config.StartPosY,
			e.config.StartWidth,
			e.config.StartHeight); err != nil {
			return err
		}
	}

	assetsDir := e.config.AssetsDir
	if !filepath.IsAbs(assetsDir) {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		assetsDir = filepath.Join(wd, assetsDir)
	}
	if err := e.assetManager.Initialize(assetsDir); err != nil {
		return err
	}

	if err := e.renderer.Initialize(e.config.Name, e.width, e.height); err != nil {
		return fmt.Errorf("failed to initialize the %s renderer: %w", e.backendType, err)
	}

	smConfig, err := e.config.SystemManagerConfig()
	if err != nil {
		return err
	}
	sm, err := systems.NewSystemManager(e.renderer, e.input, e.bus, e.camera, smConfig)
	if err != nil {
		return fmt.Errorf("failed to build the scene: %w", err)
	}
	e.systemManager = sm
	e.gameInstance.SystemManager = sm

	if err := e.gameInstance.FnInitialize(); err != nil {
		return err
	}
	if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
		return err
	}
	e.currentStage = EngineStageInitialized
	return nil
}

// Run drives the frame loop until the window closes, the game asks to quit
// or ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	e.currentStage = EngineStageRunning
	e.isRunning = true
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	var targetFrameSeconds float64
	if e.config.RefreshRate > 0 {
		targetFrameSeconds = 1.0 / float64(e.config.RefreshRate)
	}
	var lastMetricsLog float64

	for e.isRunning {
		if ctx.Err() != nil {
			core.LogInfo("context cancelled, shutting down.")
			break
		}
		if e.platform != nil && !e.platform.PumpMessages() {
			e.isRunning = false
		}

		if e.isSuspended {
			platform.Sleep(100)
			continue
		}

		// Update clock and get delta time.
		e.clock.Update()
		var currentTime float64 = e.clock.Elapsed()
		var delta float64 = (currentTime - e.lastTime)
		var frameStartTime float64 = currentTime

		if err := e.gameInstance.FnUpdate(delta); err != nil {
			core.LogError("Game update failed, shutting down: %s", err)
			e.isRunning = false
			break
		}

		moved, err := e.systemManager.Update(delta, currentTime)
		if err != nil {
			core.LogWarn("frame %d: scene update incomplete: %s", e.frames, err)
		}

		e.frame.DeltaTime = delta
		if moved {
			e.frame.CameraMoved = true
		}
		if e.frame.CameraMoved {
			e.frame.Camera = e.camera.Shared()
		}
		if err := e.renderer.DrawFrame(ctx, &e.frame); err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			core.LogError("frame %d: %s", e.frames, err)
		}
		e.frames++

		// Figure out how long the frame took and, if below the target, give the time back.
		e.clock.Update()
		var frameElapsedTime float64 = e.clock.Elapsed() - frameStartTime
		e.metrics.Update(frameElapsedTime)
		if e.config.MetricsInterval > 0 && currentTime-lastMetricsLog >= e.config.MetricsInterval {
			fps, ms := e.metrics.Frame()
			core.LogInfo("%.0f fps, %.3f ms/frame, %d draws, %d pipeline binds", fps, ms, e.frame.Stats.Draws, e.frame.Stats.PipelineBinds)
			lastMetricsLog = currentTime
		}
		if remainingSeconds := targetFrameSeconds - frameElapsedTime; remainingSeconds > 0 {
			remainingMS := uint64(remainingSeconds * 1000)
			if remainingMS > 1 {
				platform.Sleep(remainingMS - 1)
			}
		}

		// NOTE: Input update/state copying should always be handled
		// after any input should be recorded; I.E. before this line.
		// As a safety, input is the last thing to be updated before
		// this frame ends.
		e.input.Update(delta)
		e.assetManager.PumpChanges(e.bus)

		e.lastTime = currentTime

		if e.backendType == renderer.Headless && e.config.HeadlessFrames > 0 && e.frames >= e.config.HeadlessFrames {
			core.LogInfo("headless run drew %d frames.", e.frames)
			e.isRunning = false
		}
	}
	e.isRunning = false
	return nil
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	var errs []error
	if e.gameInstance.FnShutdown != nil {
		errs = append(errs, e.gameInstance.FnShutdown())
	}
	if e.systemManager != nil {
		errs = append(errs, e.systemManager.Shutdown())
	}
	errs = append(errs, e.renderer.Shutdown(), e.assetManager.Shutdown())
	if e.platform != nil {
		errs = append(errs, e.platform.Shutdown())
	}
	e.bus.Shutdown()
	e.currentStage = EngineStageUninitialized
	return errors.Join(errs...)
}

// GetFramebufferSize returns the width and height (in this order)
// of the application framebuffer.
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

func (e *Engine) Frames() uint64 {
	return e.frames
}

func (e *Engine) onEvent(context core.EventContext) bool {
	if context.Type == core.EVENT_CODE_APPLICATION_QUIT {
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning = false
		return true
	}
	return false
}

func (e *Engine) onKey(context core.EventContext) bool {
	ke, ok := context.Data.(*core.KeyEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	if ke.KeyCode == core.KEY_ESCAPE {
		// NOTE: Technically firing an event to itself, but there may be other listeners.
		e.bus.Fire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
		// Block anything else from processing this.
		return true
	}
	return false
}

func (e *Engine) onResized(context core.EventContext) bool {
	se, ok := context.Data.(*core.SystemEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	// Check if different. If so, trigger a resize event.
	if se.WindowWidth == e.width && se.WindowHeight == e.height {
		return false
	}
	e.width = se.WindowWidth
	e.height = se.WindowHeight
	core.LogDebug("Window resize: %d, %d", e.width, e.height)

	// Handle minimization
	if e.width == 0 || e.height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return false
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
		core.LogError("game resize failed: %s", err)
	}
	if err := e.renderer.OnResize(e.width, e.height); err != nil {
		core.LogError("renderer resize failed: %s", err)
	}
	// The camera system also listens for this event.
	return false
}
