package pkgmanager

import (
	"context"

	"github.com/fkrzski/docker-proxy/internal/system"
)

// Name identifies a system package manager.
type Name string

const (
	NameAPT     Name = "apt"
	NameDNF     Name = "dnf"
	NameYum     Name = "yum"
	NamePacman  Name = "pacman"
	NameBrew    Name = "brew"
	NameAPK     Name = "apk"
	NameUnknown Name = "unknown"
)

// Profile describes the resolved package manager and the commands derived
// from it. When Name is NameUnknown every other field is empty and callers
// must degrade to printed manual instructions instead of executing commands.
type Profile struct {
	Name                          Name
	TrustDependencyPackage        string
	InstallCommandTemplate        string
	QueryInstalledCommandTemplate string
}

// knownManagers is an ordered list, not a map: the first launcher found on
// PATH wins, and the ordering is a deliberate tie-break favoring
// Debian-family tooling when multiple managers are present.
var knownManagers = []Profile{
	{
		Name:                          NameAPT,
		TrustDependencyPackage:        "libnss3-tools",
		InstallCommandTemplate:        "sudo apt update && sudo apt install -y",
		QueryInstalledCommandTemplate: "dpkg -s",
	},
	{
		Name:                          NameDNF,
		TrustDependencyPackage:        "nss-tools",
		InstallCommandTemplate:        "sudo dnf install -y",
		QueryInstalledCommandTemplate: "rpm -q",
	},
	{
		Name:                          NameYum,
		TrustDependencyPackage:        "nss-tools",
		InstallCommandTemplate:        "sudo yum install -y",
		QueryInstalledCommandTemplate: "rpm -q",
	},
	{
		Name:                          NamePacman,
		TrustDependencyPackage:        "nss",
		InstallCommandTemplate:        "sudo pacman -S --noconfirm",
		QueryInstalledCommandTemplate: "pacman -Q",
	},
	{
		Name:                          NameBrew,
		TrustDependencyPackage:        "nss",
		InstallCommandTemplate:        "brew install",
		QueryInstalledCommandTemplate: "brew list",
	},
	{
		Name:                          NameAPK,
		TrustDependencyPackage:        "nss-tools",
		InstallCommandTemplate:        "sudo apk add",
		QueryInstalledCommandTemplate: "apk info -e",
	},
}

// ManualInstallGuidance lists the trust-dependency package names for the
// common distribution families, for hosts where no package manager was
// resolved.
const ManualInstallGuidance = "install the certificate trust tools manually: libnss3-tools (Debian/Ubuntu), nss-tools (Fedora/RHEL/Alpine), nss (Arch/macOS)"

// Resolver probes the host for a known package manager.
type Resolver struct {
	binaryLocator system.BinaryLocator
}

// NewResolver constructs a Resolver.
func NewResolver(binaryLocator system.BinaryLocator) Resolver {
	return Resolver{binaryLocator: binaryLocator}
}

// Resolve returns the profile of the first known package manager whose
// launcher binary is on PATH. Resolution never fails: a host without any
// known manager yields a profile with NameUnknown and empty command fields.
func (resolver Resolver) Resolve(ctx context.Context) Profile {
	for _, candidate := range knownManagers {
		_, lookErr := resolver.binaryLocator.LookPath(string(candidate.Name))
		if lookErr == nil {
			return candidate
		}
	}
	return Profile{Name: NameUnknown}
}
