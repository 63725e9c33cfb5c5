package middleware

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// APIVersion represents API version information
type APIVersion struct {
	Version    string     `json:"version"`
	Status     string     `json:"status"` // "active", "deprecated"
	SunsetDate *time.Time `json:"sunset_date,omitempty"`
	Message    string     `json:"message,omitempty"`
}

// VersionMiddleware stamps responses with API and build versions and rejects unknown
// path versions.
type VersionMiddleware struct {
	supportedVersions map[string]APIVersion
	defaultVersion    string
	buildVersion      string
}

func NewVersionMiddleware(buildVersion string) *VersionMiddleware {
	return &VersionMiddleware{
		supportedVersions: map[string]APIVersion{
			"v1": {Version: "v1", Status: "active", Message: "Current stable API version"},
		},
		defaultVersion: "v1",
		buildVersion:   buildVersion,
	}
}

// VersionHeader adds version information to response headers
func (vm *VersionMiddleware) VersionHeader(version string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-API-Version", version)
			h.Set("X-App-Version", vm.buildVersion)

			if ver, ok := vm.supportedVersions[version]; ok {
				if ver.Status == "deprecated" && ver.SunsetDate != nil {
					h.Set("X-API-Deprecated", "true")
					h.Set("X-API-Sunset", ver.SunsetDate.Format(time.RFC3339))
				}
				h.Set("X-API-Message", ver.Message)
			}
			return next(c)
		}
	}
}

// APIVersionResolver resolves the API version from the request path
func (vm *VersionMiddleware) APIVersionResolver() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			version := extractVersionFromPath(c.Request().URL.Path)
			if version == "" {
				c.Set("api_version", vm.defaultVersion)
				return next(c)
			}
			if _, ok := vm.supportedVersions[version]; !ok {
				return c.JSON(http.StatusNotFound, map[string]string{
					"error":              "Unsupported API version",
					"supported_versions": strings.Join(vm.versionNames(), ", "),
				})
			}
			c.Set("api_version", version)
			return next(c)
		}
	}
}

// Versions handles GET /versions
func (vm *VersionMiddleware) Versions(c echo.Context) error {
	versions := make([]APIVersion, 0, len(vm.supportedVersions))
	for _, name := range vm.versionNames() {
		versions = append(versions, vm.supportedVersions[name])
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"default":  vm.defaultVersion,
		"build":    vm.buildVersion,
		"versions": versions,
	})
}

// extractVersionFromPath returns "v<N>" for paths like /v1/orders, or "".
func extractVersionFromPath(path string) string {
	segment := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 2)[0]
	if len(segment) < 2 || segment[0] != 'v' {
		return ""
	}
	for _, r := range segment[1:] {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return segment
}

func (vm *VersionMiddleware) versionNames() []string {
	names := make([]string, 0, len(vm.supportedVersions))
	for name := range vm.supportedVersions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
