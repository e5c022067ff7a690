package pkgmanager_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/fkrzski/docker-proxy/internal/pkgmanager"
)

type presentBinariesLocator struct {
	present map[string]struct{}
}

func newPresentBinariesLocator(names ...string) *presentBinariesLocator {
	present := map[string]struct{}{}
	for _, name := range names {
		present[name] = struct{}{}
	}
	return &presentBinariesLocator{present: present}
}

func (locator *presentBinariesLocator) LookPath(name string) (string, error) {
	if _, found := locator.present[name]; found {
		return "/usr/bin/" + name, nil
	}
	return "", fmt.Errorf("executable %q not found in PATH", name)
}

func TestResolvePriorityIsDeterministic(testingInstance *testing.T) {
	testCases := []struct {
		testName        string
		presentBinaries []string
		expectedName    pkgmanager.Name
	}{
		{
			testName:        "AptWinsOverDnfAndBrew",
			presentBinaries: []string{"brew", "dnf", "apt"},
			expectedName:    pkgmanager.NameAPT,
		},
		{
			testName:        "DnfWinsOverYum",
			presentBinaries: []string{"yum", "dnf"},
			expectedName:    pkgmanager.NameDNF,
		},
		{
			testName:        "PacmanWinsOverBrew",
			presentBinaries: []string{"brew", "pacman"},
			expectedName:    pkgmanager.NamePacman,
		},
		{
			testName:        "BrewAlone",
			presentBinaries: []string{"brew"},
			expectedName:    pkgmanager.NameBrew,
		},
		{
			testName:        "ApkAlone",
			presentBinaries: []string{"apk"},
			expectedName:    pkgmanager.NameAPK,
		},
		{
			testName:        "NoManagerFound",
			presentBinaries: []string{},
			expectedName:    pkgmanager.NameUnknown,
		},
	}

	for _, testCase := range testCases {
		testingInstance.Run(testCase.testName, func(testingInstance *testing.T) {
			resolver := pkgmanager.NewResolver(newPresentBinariesLocator(testCase.presentBinaries...))
			profile := resolver.Resolve(context.Background())
			if profile.Name != testCase.expectedName {
				testingInstance.Fatalf("expected %s, got %s", testCase.expectedName, profile.Name)
			}
		})
	}
}

func TestResolveUnknownManagerHasEmptyCommandFields(testingInstance *testing.T) {
	resolver := pkgmanager.NewResolver(newPresentBinariesLocator())
	profile := resolver.Resolve(context.Background())
	if profile.Name != pkgmanager.NameUnknown {
		testingInstance.Fatalf("expected unknown manager, got %s", profile.Name)
	}
	if profile.TrustDependencyPackage != "" || profile.InstallCommandTemplate != "" || profile.QueryInstalledCommandTemplate != "" {
		testingInstance.Fatalf("expected empty command fields, got %+v", profile)
	}
}

func TestResolveCommandMappings(testingInstance *testing.T) {
	testCases := []struct {
		managerBinary           string
		expectedTrustPackage    string
		expectedInstallTemplate string
		expectedQueryTemplate   string
	}{
		{
			managerBinary:           "apt",
			expectedTrustPackage:    "libnss3-tools",
			expectedInstallTemplate: "sudo apt update && sudo apt install -y",
			expectedQueryTemplate:   "dpkg -s",
		},
		{
			managerBinary:           "dnf",
			expectedTrustPackage:    "nss-tools",
			expectedInstallTemplate: "sudo dnf install -y",
			expectedQueryTemplate:   "rpm -q",
		},
		{
			managerBinary:           "yum",
			expectedTrustPackage:    "nss-tools",
			expectedInstallTemplate: "sudo yum install -y",
			expectedQueryTemplate:   "rpm -q",
		},
		{
			managerBinary:           "pacman",
			expectedTrustPackage:    "nss",
			expectedInstallTemplate: "sudo pacman -S --noconfirm",
			expectedQueryTemplate:   "pacman -Q",
		},
		{
			managerBinary:           "brew",
			expectedTrustPackage:    "nss",
			expectedInstallTemplate: "brew install",
			expectedQueryTemplate:   "brew list",
		},
		{
			managerBinary:           "apk",
			expectedTrustPackage:    "nss-tools",
			expectedInstallTemplate: "sudo apk add",
			expectedQueryTemplate:   "apk info -e",
		},
	}

	for _, testCase := range testCases {
		testingInstance.Run(testCase.managerBinary, func(testingInstance *testing.T) {
			resolver := pkgmanager.NewResolver(newPresentBinariesLocator(testCase.managerBinary))
			profile := resolver.Resolve(context.Background())
			if profile.TrustDependencyPackage != testCase.expectedTrustPackage {
				testingInstance.Fatalf("expected trust package %q, got %q", testCase.expectedTrustPackage, profile.TrustDependencyPackage)
			}
			if profile.InstallCommandTemplate != testCase.expectedInstallTemplate {
				testingInstance.Fatalf("expected install template %q, got %q", testCase.expectedInstallTemplate, profile.InstallCommandTemplate)
			}
			if profile.QueryInstalledCommandTemplate != testCase.expectedQueryTemplate {
				testingInstance.Fatalf("expected query template %q, got %q", testCase.expectedQueryTemplate, profile.QueryInstalledCommandTemplate)
			}
		})
	}
}
