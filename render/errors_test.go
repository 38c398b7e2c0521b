package render

import (
	"errors"
	"testing"
)

func TestClassifySwapchainError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FrameErrorKind
	}{
		{"out of date", errors.New("swapchain out of date: 1000001004"), FrameErrorSwapchainOutOfDate},
		{"suboptimal", errors.New("swapchain acquire suboptimal"), FrameErrorSwapchainSuboptimal},
		{"device lost", errors.New("device lost during submit"), FrameErrorDeviceLost},
		{"unrecognized", errors.New("something else"), FrameErrorUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifySwapchainError(tt.err); got != tt.want {
				t.Errorf("classifySwapchainError(%q) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsRecreateSwapchain(t *testing.T) {
	outOfDate := newFrameError("acquire", FrameErrorSwapchainOutOfDate, errors.New("x"))
	fatal := newFrameError("submit", FrameErrorDeviceLost, errors.New("x"))

	if !IsRecreateSwapchain(outOfDate) {
		t.Error("expected out-of-date FrameError to require swapchain recreation")
	}
	if IsRecreateSwapchain(fatal) {
		t.Error("expected device-lost FrameError not to request swapchain recreation")
	}
	if IsRecreateSwapchain(errors.New("plain error")) {
		t.Error("expected a non-FrameError not to request swapchain recreation")
	}
}

func TestFrameErrorUnwrap(t *testing.T) {
	inner := errors.New("vk result -1000001004")
	fe := newFrameError("present", FrameErrorSwapchainOutOfDate, inner)

	if !errors.Is(fe, inner) {
		t.Error("expected errors.Is to see through FrameError to the wrapped error")
	}
}
