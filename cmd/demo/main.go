// Command demo loads a glTF scene and drives it through the deferred
// frame graph: three shadow cascades, G-buffer, lighting, auto-exposure,
// bloom, and composite+FXAA onto the window's swapchain.
package main

import (
	"fmt"
	stdmath "math"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mirelforge/photon/assets/gltf"
	"github.com/mirelforge/photon/core"
	reMath "github.com/mirelforge/photon/math"
	"github.com/mirelforge/photon/render"
	"github.com/mirelforge/photon/scene"
	"github.com/mirelforge/photon/textures"
	"github.com/mirelforge/photon/vulkan"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("demo exited")
	}
}

func run() error {
	assetPath := "assets/models/scene.gltf"
	if len(os.Args) > 1 {
		assetPath = os.Args[1]
	}

	windowConfig := core.DefaultWindowConfig()
	windowConfig.Title = "photon"
	window, err := core.NewWindow(windowConfig)
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	defer window.Destroy()

	instanceConfig := vulkan.DefaultInstanceConfig()
	instanceConfig.AppName = "photon-demo"
	instanceConfig.RequiredExtensions = window.GetRequiredInstanceExtensions()
	instance, err := vulkan.NewInstance(instanceConfig)
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	defer instance.Destroy()

	surface, err := vulkan.CreateSurface(instance, window)
	if err != nil {
		return fmt.Errorf("create surface: %w", err)
	}
	defer vulkan.DestroySurface(instance, surface)

	device, err := vulkan.PickPhysicalDevice(instance, surface)
	if err != nil {
		return fmt.Errorf("pick physical device: %w", err)
	}
	if err := device.CreateLogicalDevice(surface); err != nil {
		return fmt.Errorf("create logical device: %w", err)
	}
	defer device.Destroy()
	log.Info().Str("gpu", device.GetGPUName()).Str("type", device.GetDeviceType()).Msg("selected device")

	width, height := window.GetFramebufferSize()
	swapchain, err := vulkan.CreateSwapChain(device, surface, vulkan.SwapChainConfig{
		Width:        uint32(width),
		Height:       uint32(height),
		VSync:        windowConfig.VSync,
		TripleBuffer: false,
	})
	if err != nil {
		return fmt.Errorf("create swapchain: %w", err)
	}
	defer swapchain.Destroy(device)

	texMgr := textures.NewTextureManager(device)
	defer texMgr.DestroyAll()
	defaultTexture := texMgr.GetDefaultTexture()

	geometry := &render.GeometryBuffers{}
	defer geometry.Destroy(device)

	options := render.DefaultOptions(uint32(width), uint32(height))
	frameGraph, err := render.NewFrameGraph(device, swapchain, defaultTexture, options)
	if err != nil {
		return fmt.Errorf("create frame graph: %w", err)
	}
	defer frameGraph.Destroy()

	result, err := gltf.Load(device, geometry, texMgr, assetPath)
	if err != nil {
		return fmt.Errorf("load scene %q: %w", assetPath, err)
	}
	log.Info().Int("roots", len(result.Roots)).Int("animations", len(result.Animations)).Str("path", assetPath).Msg("loaded scene")

	s := scene.NewScene()
	for _, root := range result.Roots {
		s.AddNode(root)
	}

	fovY := float32(60 * stdmath.Pi / 180)
	camera := scene.NewCamera(fovY, float32(width)/float32(height), 0.1, 1000.0)
	camera.SetPosition(reMath.Vec3{X: 0, Y: 2, Z: 5})
	camera.LookAt(reMath.Vec3Zero, reMath.Vec3Up)
	s.SetCamera(camera)

	sun := &scene.Light{
		Type:      scene.LightTypeDirectional,
		Direction: reMath.Vec3{X: 0.4, Y: -1, Z: -0.3}.Normalize(),
		Color:     core.ColorWhite,
		Intensity: 3.0,
	}
	s.AddLight(sun)

	log.Info().Msg("entering render loop (ESC to quit)")

	frameCount := 0
	lastFPSReport := time.Now()
	lastFrame := time.Now()
	var animTime float32

	for !window.ShouldClose() {
		window.PollEvents()
		if window.IsKeyPressed(core.KeyEscape) {
			break
		}

		now := time.Now()
		dt := float32(now.Sub(lastFrame).Seconds())
		lastFrame = now

		animTime += dt
		for _, anim := range result.Animations {
			anim.Sample(animTime)
		}
		s.Update(dt)

		width, height := window.GetFramebufferSize()
		if width == 0 || height == 0 {
			continue
		}
		camera.UpdateAspectRatio(float32(width), float32(height))

		camParam := camera.Parameter()
		mainDrawlist, summary := scene.GenerateDrawcalls(s.Root, camParam)
		visibleNear, visibleFar := scene.ClampGBufferNearFar(summary.Near, summary.Far)

		cascades := scene.DeriveShadowCascades(camera, sun.Direction, options.CSMBlendFactor)
		var cascadeDrawlists [render.ShadowCascadeCount]*scene.DrawlistSet
		var cascadeUniforms [render.ShadowCascadeCount]render.CameraUniform
		for i, cascade := range cascades {
			cascadeDrawlists[i], _ = scene.GenerateDrawcalls(s.Root, cascade.FrustumParams)
			cascadeUniforms[i] = cameraUniformFromFrustum(cascade.FrustumParams)
		}

		params := render.FrameParams{
			Camera:           cameraUniformFromFrustum(camParam),
			Lighting:         lightingParams(sun, cascades, options.CSMBlendFactor),
			MainDrawlist:     mainDrawlist,
			CascadeDrawlists: cascadeDrawlists,
			DeltaTime:        dt,
		}

		if err := frameGraph.DrawFrame(geometry, params, cascadeUniforms); err != nil {
			if render.IsRecreateSwapchain(err) {
				log.Warn().Err(err).Msg("recreating swapchain")
				continue
			}
			return fmt.Errorf("draw frame: %w", err)
		}

		frameCount++
		if now.Sub(lastFPSReport).Seconds() >= 1.0 {
			window.SetTitle(fmt.Sprintf("%s - %d fps", windowConfig.Title, frameCount))
			log.Debug().Int("objects", summary.ObjectCount).Int("vertices", summary.VertexCount).
				Float32("near", visibleNear).Float32("far", visibleFar).Msg("frame stats")
			frameCount = 0
			lastFPSReport = now
		}
	}

	device.WaitIdle()
	log.Info().Msg("exiting")
	return nil
}

// cameraUniformFromFrustum packs one view's matrices into the std140 layout
// the G-buffer and lighting shaders expect; the shadow pass takes only its
// ViewProjection.
func cameraUniformFromFrustum(fp scene.FrustumParams) render.CameraUniform {
	return render.CameraUniform{
		View:           fp.View,
		Projection:     fp.Projection,
		ViewProjection: fp.ViewProjection,
		InverseView:    fp.View.Inverse(),
		InverseProj:    fp.Projection.Inverse(),
		EyePosition:    [3]float32{fp.Eye.X, fp.Eye.Y, fp.Eye.Z},
	}
}

// lightingParams builds the lighting pass's per-frame uniform from the
// scene's single directional light and the cascades derived this frame.
func lightingParams(sun *scene.Light, cascades [scene.ShadowCascadeCount]scene.ShadowParameter, csmBlendFactor float32) render.LightingParams {
	var params render.LightingParams
	params.SunDirection = [3]float32{sun.Direction.X, sun.Direction.Y, sun.Direction.Z}
	params.SunColor = [3]float32{sun.Color.R, sun.Color.G, sun.Color.B}
	params.SunIntensity = sun.Intensity
	params.AmbientColor = [3]float32{0.05, 0.05, 0.08}
	params.AmbientIntensity = 1.0
	params.ShadowBias = 0.0015
	params.CascadeCount = scene.ShadowCascadeCount
	params.CSMBlendFactor = csmBlendFactor

	for i, cascade := range cascades {
		params.Cascades[i] = render.CascadeData{
			LightViewProjection: cascade.ViewProjection,
			SplitFar:            cascade.SplitFar,
		}
	}
	return params
}
