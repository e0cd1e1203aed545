package platform

import (
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/TQwan/SpartanEngine/engine/core"
)

var startTime float64 = 0

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

// ContextHint describes the client API requested for the window. Vulkan
// windows carry no client API; OpenGL windows carry a context version which
// the backend negotiates downwards until creation succeeds.
type ContextHint struct {
	OpenGL       bool
	MajorVersion int
	MinorVersion int
	Debug        bool
}

type Platform struct {
	Window *glfw.Window

	name          string
	x, y          uint32
	width, height uint32
}

func New() (*Platform, error) {
	return &Platform{
		Window: nil,
	}, nil
}

func (p *Platform) Startup(applicationName string, x uint32, y uint32, width uint32, height uint32) error {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return err
	}

	p.name = applicationName
	p.x, p.y = x, y
	p.width, p.height = width, height

	startTime = glfw.GetTime()
	return nil
}

// CreateWindow (re)creates the platform window with the given context hint.
// Backends call this repeatedly while walking context versions down, so an
// existing window is destroyed first.
func (p *Platform) CreateWindow(hint ContextHint) error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	if hint.OpenGL {
		glfw.WindowHint(glfw.ClientAPI, glfw.OpenGLAPI)
		glfw.WindowHint(glfw.ContextVersionMajor, hint.MajorVersion)
		glfw.WindowHint(glfw.ContextVersionMinor, hint.MinorVersion)
		glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
		glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
		if hint.Debug {
			glfw.WindowHint(glfw.OpenGLDebugContext, glfw.True)
		} else {
			glfw.WindowHint(glfw.OpenGLDebugContext, glfw.False)
		}
	} else {
		glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.
	}

	window, err := glfw.CreateWindow(int(p.width), int(p.height), p.name, nil, nil)
	if err != nil {
		return err
	}
	p.Window = window

	if hint.OpenGL {
		p.Window.MakeContextCurrent()
	}

	p.Window.SetKeyCallback(keyCallback)
	p.Window.SetFramebufferSizeCallback(framebufferSizeCallback)
	p.Window.SetPos(int(p.x), int(p.y))
	p.Window.Show()

	return nil
}

func (p *Platform) GetRequiredExtensionNames() []string {
	if p.Window == nil {
		return nil
	}
	return p.Window.GetRequiredInstanceExtensions()
}

func (p *Platform) FramebufferSize() (uint32, uint32) {
	if p.Window == nil {
		return p.width, p.height
	}
	w, h := p.Window.GetFramebufferSize()
	return uint32(w), uint32(h)
}

func (p *Platform) ShouldClose() bool {
	return p.Window != nil && p.Window.ShouldClose()
}

func (p *Platform) PumpMessages() {
	glfw.PollEvents()
}

func (p *Platform) Shutdown() error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
	return nil
}

func (p *Platform) GetAbsoluteTime() float64 {
	return glfw.GetTime() - startTime
}

func keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if key == glfw.KeyEscape && action == glfw.Press {
		w.SetShouldClose(true)
	}
}

func framebufferSizeCallback(w *glfw.Window, width int, height int) {
}
