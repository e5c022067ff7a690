package platform

import (
	"context"
	"strings"

	"github.com/fkrzski/docker-proxy/internal/system"
)

// OSFamily identifies the operating system family of the host.
type OSFamily string

const (
	OSFamilyLinux   OSFamily = "linux"
	OSFamilyMacOS   OSFamily = "macos"
	OSFamilyWSL2    OSFamily = "wsl2"
	OSFamilyUnknown OSFamily = "unknown"
)

// Architecture identifies the normalized CPU architecture of the host.
type Architecture string

const (
	ArchitectureAMD64 Architecture = "amd64"
	ArchitectureARM64 Architecture = "arm64"
	ArchitectureARMv7 Architecture = "armv7"
	ArchitectureOther Architecture = "other"
)

const (
	kernelNameDarwin = "Darwin"
	kernelNameLinux  = "Linux"

	// /proc/version on a Windows-hosted Linux kernel carries the vendor marker.
	windowsHostMarkerFilePath = "/proc/version"
	windowsHostMarker         = "microsoft"
)

// Profile describes the host platform. It is constructed once per invocation
// and passed by value into every later bootstrap stage.
type Profile struct {
	OSFamily           OSFamily
	Architecture       Architecture
	RawMachineHardware string
}

// Detector identifies the operating system family and CPU architecture.
type Detector struct {
	commandRunner system.CommandRunner
	fileSystem    system.FileSystem
}

// NewDetector constructs a Detector.
func NewDetector(commandRunner system.CommandRunner, fileSystem system.FileSystem) Detector {
	return Detector{commandRunner: commandRunner, fileSystem: fileSystem}
}

// Detect returns the platform profile. Detection never fails: unrecognized
// kernels yield OSFamilyUnknown and unrecognized hardware yields
// ArchitectureOther.
func (detector Detector) Detect(ctx context.Context) Profile {
	kernelName, kernelErr := detector.commandRunner.RunOutput(ctx, "uname", []string{"-s"})
	osFamily := OSFamilyUnknown
	if kernelErr == nil {
		osFamily = detector.classifyKernel(strings.TrimSpace(kernelName))
	}

	machineHardware := ""
	hardwareName, hardwareErr := detector.commandRunner.RunOutput(ctx, "uname", []string{"-m"})
	if hardwareErr == nil {
		machineHardware = strings.TrimSpace(hardwareName)
	}

	return Profile{
		OSFamily:           osFamily,
		Architecture:       NormalizeArchitecture(machineHardware),
		RawMachineHardware: machineHardware,
	}
}

func (detector Detector) classifyKernel(kernelName string) OSFamily {
	switch kernelName {
	case kernelNameDarwin:
		return OSFamilyMacOS
	case kernelNameLinux:
		if detector.isWindowsHosted() {
			return OSFamilyWSL2
		}
		return OSFamilyLinux
	default:
		return OSFamilyUnknown
	}
}

func (detector Detector) isWindowsHosted() bool {
	exists, existsErr := detector.fileSystem.FileExists(windowsHostMarkerFilePath)
	if existsErr != nil || !exists {
		return false
	}
	content, readErr := detector.fileSystem.ReadFile(windowsHostMarkerFilePath)
	if readErr != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(content)), windowsHostMarker)
}

// NormalizeArchitecture maps a machine hardware name to a normalized
// Architecture. The mapping is total: any unrecognized value maps to
// ArchitectureOther.
func NormalizeArchitecture(machineHardware string) Architecture {
	switch machineHardware {
	case "x86_64":
		return ArchitectureAMD64
	case "aarch64", "arm64":
		return ArchitectureARM64
	case "armv7l":
		return ArchitectureARMv7
	default:
		return ArchitectureOther
	}
}
