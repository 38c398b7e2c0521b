package vulkan

/*
#include <vulkan/vulkan.h>
*/
import "C"
import (
	"fmt"
	"unsafe"

	"github.com/mirelforge/photon/core"
)

// CreateSurface creates window's presentation surface through GLFW's
// platform-agnostic surface creation, so this package never needs the
// WM-specific VkXXXSurfaceCreateInfoKHR paths (Win32, Xlib, Wayland, ...).
func CreateSurface(instance *Instance, window *core.Window) (C.VkSurfaceKHR, error) {
	surfacePtr, err := window.CreateWindowSurface(uintptr(unsafe.Pointer(instance.Handle)))
	if err != nil {
		return nil, fmt.Errorf("failed to create window surface: %w", err)
	}
	return C.VkSurfaceKHR(unsafe.Pointer(surfacePtr)), nil
}

// DestroySurface releases a surface created by CreateSurface.
func DestroySurface(instance *Instance, surface C.VkSurfaceKHR) {
	C.vkDestroySurfaceKHR(instance.Handle, surface, nil)
}
