package engine

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/vecsandbox/engine/core"
	"github.com/spaghettifunk/vecsandbox/engine/math"
	"github.com/spaghettifunk/vecsandbox/engine/renderer"
	"github.com/spaghettifunk/vecsandbox/engine/renderer/metadata"
	"github.com/spaghettifunk/vecsandbox/engine/resources"
	"github.com/spaghettifunk/vecsandbox/engine/systems"
)

const DefaultConfigPath = "config/sandbox.toml"

type ApplicationConfig struct {
	// Window starting position x axis, if applicable.
	StartPosX uint32 `toml:"start_pos_x"`
	// Window starting position y axis, if applicable.
	StartPosY uint32 `toml:"start_pos_y"`
	// Window starting width, if applicable.
	StartWidth uint32 `toml:"start_width"`
	// Window starting height, if applicable.
	StartHeight uint32 `toml:"start_height"`
	// The application name used in windowing, if applicable.
	Name     string        `toml:"name"`
	LogLevel core.LogLevel `toml:"log_level"`
	// vulkan or headless.
	Backend string `toml:"backend"`
	// Enables the Vulkan validation layers.
	Debug bool `toml:"debug"`
	// Frames per second the loop is throttled to. Zero disables throttling.
	RefreshRate uint32 `toml:"refresh_rate"`
	// Frames a headless run draws before it stops. Zero runs until cancelled.
	HeadlessFrames uint64 `toml:"headless_frames"`
	// Assets directory, relative to the working directory.
	AssetsDir string `toml:"assets_dir"`
	// Seconds between two metrics log lines.
	MetricsInterval float64 `toml:"metrics_interval"`

	Limits    resources.Limits          `toml:"limits"`
	Assets    map[string]string         `toml:"assets"`
	Pipelines map[string]PipelineConfig `toml:"pipelines"`
	Vectors   []VectorConfig            `toml:"vectors"`
	Camera    CameraConfig              `toml:"camera"`
	Scene     SceneConfig               `toml:"scene"`
}

/** @brief A pipeline as declared in the configuration file. */
type PipelineConfig struct {
	VertexInput    string `toml:"vertex_input"`
	VertexShader   string `toml:"vertex_shader"`
	FragmentShader string `toml:"fragment_shader"`
	// triangles or lines.
	Topology string `toml:"topology"`
	// none, front, back or both.
	CullMode string `toml:"cull_mode"`
}

type VectorConfig struct {
	Start [3]float32 `toml:"start"`
	End   [3]float32 `toml:"end"`
	Color [4]float32 `toml:"color"`
}

func (v VectorConfig) Points() (math.Vec3, math.Vec3, math.Vec4) {
	return math.NewVec3(v.Start[0], v.Start[1], v.Start[2]),
		math.NewVec3(v.End[0], v.End[1], v.End[2]),
		math.NewVec4(v.Color[0], v.Color[1], v.Color[2], v.Color[3])
}

type CameraConfig struct {
	Position [3]float32                 `toml:"position"`
	FOV      float32                    `toml:"fov"`
	Controls systems.CameraSystemConfig `toml:"controls"`
}

type SceneConfig struct {
	MaxVectors  int     `toml:"max_vectors"`
	GridCells   int     `toml:"grid_cells"`
	CubeGravity bool    `toml:"cube_gravity"`
	CubeForce   float32 `toml:"cube_force"`
	CubeMass    float32 `toml:"cube_mass"`
}

func DefaultApplicationConfig() *ApplicationConfig {
	return &ApplicationConfig{
		StartPosX:       100,
		StartPosY:       100,
		StartWidth:      1280,
		StartHeight:     720,
		Name:            "Vector Sandbox",
		LogLevel:        core.LogLevelInfo,
		Backend:         renderer.Vulkan.String(),
		RefreshRate:     120,
		HeadlessFrames:  600,
		AssetsDir:       "assets",
		MetricsInterval: 5,
		Limits:          resources.DefaultLimits(),
		Assets: map[string]string{
			systems.AssetVectorGizmo: "vector_gizmo.tka",
			systems.AssetGridCell:    "grid_cell.tka",
			systems.AssetCube:        "cube.tka",
		},
		Pipelines: map[string]PipelineConfig{
			systems.PipelineGizmos: {
				VertexInput:    "pos_uv_norm",
				VertexShader:   "gizmos.vert.spv",
				FragmentShader: "gizmos.frag.spv",
				CullMode:       "back",
			},
			systems.PipelineGrid: {
				VertexInput:    "pos_uv_norm_instance_pos",
				VertexShader:   "grid.vert.spv",
				FragmentShader: "grid.frag.spv",
				Topology:       "lines",
			},
			systems.PipelineCube: {
				VertexInput:    "pos_uv_norm",
				VertexShader:   "cube.vert.spv",
				FragmentShader: "cube.frag.spv",
				CullMode:       "back",
			},
		},
		Camera: CameraConfig{
			Position: [3]float32{0, 2, -6},
			FOV:      90,
			Controls: systems.DefaultCameraSystemConfig(),
		},
		Scene: SceneConfig{
			MaxVectors: systems.DefaultMaxVectors,
			GridCells:  systems.DefaultGridCells,
			CubeForce:  1,
			CubeMass:   1,
		},
	}
}

// LoadApplicationConfig decodes a TOML file over the defaults. Fields the file
// leaves out keep their default value.
func LoadApplicationConfig(path string) (*ApplicationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config `%s`: %w", path, err)
	}
	return ParseApplicationConfig(data)
}

func ParseApplicationConfig(data []byte) (*ApplicationConfig, error) {
	config := DefaultApplicationConfig()
	// Tables replace the defaults wholesale, so decode them apart and merge.
	var overrides struct {
		Assets    map[string]string         `toml:"assets"`
		Pipelines map[string]PipelineConfig `toml:"pipelines"`
	}
	if err := toml.NewDecoder(bytes.NewReader(data)).Decode(&overrides); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	assets, pipelines := config.Assets, config.Pipelines
	if err := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	for tag, name := range overrides.Assets {
		assets[tag] = name
	}
	for tag, p := range overrides.Pipelines {
		pipelines[tag] = p
	}
	config.Assets, config.Pipelines = assets, pipelines
	return config, config.Validate()
}

func (c *ApplicationConfig) Validate() error {
	if _, err := c.RendererType(); err != nil {
		return err
	}
	if c.StartWidth == 0 || c.StartHeight == 0 {
		return fmt.Errorf("window size %dx%d is invalid", c.StartWidth, c.StartHeight)
	}
	if c.Scene.CubeMass <= 0 {
		return fmt.Errorf("cube mass %v is invalid", c.Scene.CubeMass)
	}
	for tag, p := range c.Pipelines {
		if _, err := p.Desc(tag); err != nil {
			return err
		}
	}
	return nil
}

func (c *ApplicationConfig) RendererType() (renderer.RendererType, error) {
	switch strings.ToLower(c.Backend) {
	case "", renderer.Vulkan.String():
		return renderer.Vulkan, nil
	case renderer.Headless.String():
		return renderer.Headless, nil
	}
	return renderer.Vulkan, fmt.Errorf("backend `%s` is not supported", c.Backend)
}

// SystemManagerConfig resolves the declaration tables into what the scene systems expect.
func (c *ApplicationConfig) SystemManagerConfig() (*systems.SystemManagerConfig, error) {
	pipelines := make(map[string]metadata.PipelineDesc, len(c.Pipelines))
	for tag, p := range c.Pipelines {
		desc, err := p.Desc(tag)
		if err != nil {
			return nil, err
		}
		pipelines[tag] = desc
	}
	return &systems.SystemManagerConfig{
		Assets:     c.Assets,
		Pipelines:  pipelines,
		MaxVectors: c.Scene.MaxVectors,
		GridCells:  c.Scene.GridCells,
		Camera:     c.Camera.Controls,
	}, nil
}

func (p PipelineConfig) Desc(name string) (metadata.PipelineDesc, error) {
	input, err := metadata.ParseVertexInputType(p.VertexInput)
	if err != nil {
		return metadata.PipelineDesc{}, fmt.Errorf("pipeline `%s`: %w", name, err)
	}
	desc := metadata.PipelineDesc{
		Name:           name,
		VertexInput:    input,
		VertexShader:   p.VertexShader,
		FragmentShader: p.FragmentShader,
	}
	switch strings.ToLower(p.Topology) {
	case "", "triangles":
		desc.Topology = metadata.TopologyTriangleList
	case "lines":
		desc.Topology = metadata.TopologyLineList
	default:
		return metadata.PipelineDesc{}, fmt.Errorf("pipeline `%s`: topology `%s` is not supported", name, p.Topology)
	}
	switch strings.ToLower(p.CullMode) {
	case "", "none":
		desc.CullMode = metadata.FaceCullModeNone
	case "front":
		desc.CullMode = metadata.FaceCullModeFront
	case "back":
		desc.CullMode = metadata.FaceCullModeBack
	case "both":
		desc.CullMode = metadata.FaceCullModeFrontAndBack
	default:
		return metadata.PipelineDesc{}, fmt.Errorf("pipeline `%s`: cull mode `%s` is not supported", name, p.CullMode)
	}
	return desc, nil
}
