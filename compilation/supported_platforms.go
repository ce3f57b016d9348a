package compilation

import (
	"fmt"
	"sort"

	"github.com/shadow-hq/shadow/compilation/platforms"
)

// defaultPlatformConfigGenerator maps platform identifiers to generators of their default configuration. Every
// platform with a generator is a supported compilation platform. Populated in init.
var defaultPlatformConfigGenerator map[string]func() platforms.PlatformConfig

func init() {
	generators := []func() platforms.PlatformConfig{
		func() platforms.PlatformConfig { return platforms.NewForgeCompilationConfig(".") },
		func() platforms.PlatformConfig { return platforms.NewSolcCompilationConfig("contract.sol") },
	}

	defaultPlatformConfigGenerator = make(map[string]func() platforms.PlatformConfig)
	for _, generator := range generators {
		platformId := generator().Platform()
		if _, exists := defaultPlatformConfigGenerator[platformId]; exists {
			panic(fmt.Errorf("the compilation platform '%s' is registered with more than one provider", platformId))
		}
		defaultPlatformConfigGenerator[platformId] = generator
	}
}

// GetSupportedCompilationPlatforms returns the supported platform identifiers in sorted order.
func GetSupportedCompilationPlatforms() []string {
	platformIds := make([]string, 0, len(defaultPlatformConfigGenerator))
	for k := range defaultPlatformConfigGenerator {
		platformIds = append(platformIds, k)
	}
	sort.Strings(platformIds)
	return platformIds
}

// IsSupportedCompilationPlatform returns a boolean status indicating if a platform identifier is supported.
func IsSupportedCompilationPlatform(platform string) bool {
	_, ok := defaultPlatformConfigGenerator[platform]
	return ok
}

// GetDefaultPlatformConfig obtains a PlatformConfig from the default generator for the provided platform.
func GetDefaultPlatformConfig(platform string) platforms.PlatformConfig {
	return defaultPlatformConfigGenerator[platform]()
}
