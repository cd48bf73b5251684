package delivery

import (
	"errors"
	"net/url"
	"strings"

	"github.com/forem/mediaurl/core/authtoken"
	coreerrors "github.com/forem/mediaurl/core/errors"
	"github.com/forem/mediaurl/core/metrics"
	"github.com/forem/mediaurl/core/sign"
	"github.com/forem/mediaurl/core/transformation"
)

var (
	ErrMissingCloudName  = errors.New("missing cloud name")
	ErrMissingSecret     = errors.New("missing api secret")
	ErrInvalidURLSuffix  = errors.New("invalid url suffix")
	ErrUnsupportedSuffix = errors.New("url suffix not supported")
	ErrUnsupportedRoot   = errors.New("root path not supported")
	ErrMissingPublicID   = errors.New("missing public id")
)

// Locator identifies one stored or remote asset.
type Locator struct {
	PublicID     string
	Version      string
	Format       string
	ResourceType string
	DeliveryType string
	URLSuffix    string
}

// Result is a built delivery URL plus the compiler hints that did not
// end up in the URL.
type Result struct {
	URL      string
	Compiled transformation.Compiled
}

// URL builds a delivery URL and discards the compiler hints.
func URL(config Config, locator Locator, chain ...transformation.Options) (string, error) {
	result, err := Build(config, locator, chain)
	if err != nil {
		return "", err
	}
	return result.URL, nil
}

// Build assembles
// <prefix>/<resource_type>/<delivery_type>/<signature>/<transformation>/<version>/<source>
// dropping blank segments, then appends the auth token query when one applies.
func Build(config Config, locator Locator, chain []transformation.Options) (Result, error) {
	if strings.TrimSpace(config.CloudName) == "" {
		return Result{}, coreerrors.Configuration(ErrMissingCloudName, "missing_cloud_name", "cloud name is required")
	}
	source := locator.PublicID
	if source == "" {
		return Result{}, coreerrors.Validation(ErrMissingPublicID, "missing_public_id", "public id is required")
	}
	// Absolute http urls without a delivery type are already deliverable.
	if locator.DeliveryType == "" && httpSourcePattern.MatchString(source) {
		return Result{URL: source}, nil
	}

	if locator.DeliveryType == "fetch" && locator.Format != "" {
		chain = withFetchFormat(chain, locator.Format)
		locator.Format = ""
	}

	compiler := transformation.Compiler{ResponsiveWidth: config.ResponsiveWidth}
	compiled, err := compiler.CompileChain(chain)
	if err != nil {
		return Result{}, err
	}

	resourceType, deliveryType, err := config.resolveTypes(locator)
	if err != nil {
		return Result{}, err
	}
	source, sourceToSign, err := finalizeSource(source, locator.Format, locator.URLSuffix)
	if err != nil {
		return Result{}, err
	}

	version := strings.TrimPrefix(locator.Version, "v")
	if version == "" && config.ForceVersion && strings.Contains(sourceToSign, "/") &&
		!versionPattern.MatchString(sourceToSign) && !isRemote(sourceToSign) {
		version = "1"
	}
	if version != "" {
		version = "v" + version
	}

	transformationSegment := collapseSlashes(compiled.Transformation)
	useToken := config.SignURL && config.AuthToken != nil && !config.AuthToken.IsZero()

	signature := ""
	if config.SignURL && !useToken {
		if config.APISecret == "" {
			return Result{}, coreerrors.Configuration(ErrMissingSecret, "missing_api_secret", "api secret is required for signed urls")
		}
		signedVersion := ""
		if config.SignVersion {
			signedVersion = version
		}
		toSign := fullyUnescape(joinNonBlank("/", transformationSegment, signedVersion, sourceToSign))
		signature, err = sign.URLSignature(toSign, config.APISecret, config.SignatureAlgorithm, config.LongURLSignature)
		if err != nil {
			return Result{}, err
		}
		metrics.RecordSignature("url")
	}

	prefix := config.DistributionPrefix(source)
	assembled := joinNonBlank("/", prefix, resourceType, deliveryType, signature, transformationSegment, version, source)

	if useToken {
		path := assembled
		if parsed, parseErr := url.Parse(assembled); parseErr == nil {
			path = parsed.EscapedPath()
		}
		token, err := authtoken.GenerateAt(authtoken.Merge(*config.AuthToken, authtoken.Spec{URL: path}), config.now())
		if err != nil {
			return Result{}, err
		}
		metrics.RecordSignature("token")
		assembled += "?" + token
	}
	return Result{URL: assembled, Compiled: compiled}, nil
}

// resolveTypes applies the url suffix, root path and shorten rewrites.
func (c Config) resolveTypes(locator Locator) (string, string, error) {
	resourceType := locator.ResourceType
	if resourceType == "" {
		resourceType = "image"
	}
	deliveryType := locator.DeliveryType
	if deliveryType == "" {
		deliveryType = "upload"
	}

	if locator.URLSuffix != "" {
		switch resourceType + "/" + deliveryType {
		case "image/upload":
			resourceType = "images"
		case "image/private":
			resourceType = "private_images"
		case "image/authenticated":
			resourceType = "authenticated_images"
		case "raw/upload":
			resourceType = "files"
		case "video/upload":
			resourceType = "videos"
		default:
			return "", "", coreerrors.Validation(ErrUnsupportedSuffix, "unsupported_url_suffix",
				"url suffix only supported for image/upload, image/private, image/authenticated, video/upload and raw/upload")
		}
		deliveryType = ""
	}

	if c.UseRootPath {
		if (resourceType == "image" && deliveryType == "upload") || (resourceType == "images" && deliveryType == "") {
			resourceType, deliveryType = "", ""
		} else {
			return "", "", coreerrors.Validation(ErrUnsupportedRoot, "unsupported_root_path", "root path only supported for image/upload")
		}
	}

	if c.Shorten && resourceType == "image" && deliveryType == "upload" {
		resourceType, deliveryType = "iu", ""
	}
	return resourceType, deliveryType, nil
}

// finalizeSource escapes the identifier and returns the delivered form and
// the form used for signing, which never carries the url suffix.
func finalizeSource(source, format, suffix string) (string, string, error) {
	source = collapseSlashes(source)
	if isRemote(source) {
		escaped := SmartEscape(source)
		return escaped, escaped, nil
	}

	escaped := SmartEscape(unescapeSource(source))
	toSign := escaped
	if suffix != "" {
		if strings.ContainsAny(suffix, "./") {
			return "", "", coreerrors.Validation(ErrInvalidURLSuffix, "invalid_url_suffix", "url suffix must not contain . or /: %q", suffix)
		}
		escaped += "/" + suffix
	}
	if format != "" {
		escaped += "." + format
		toSign += "." + format
	}
	return escaped, toSign, nil
}

func unescapeSource(value string) string {
	decoded, err := url.PathUnescape(value)
	if err != nil {
		return value
	}
	return decoded
}

func withFetchFormat(chain []transformation.Options, format string) []transformation.Options {
	if len(chain) == 0 {
		return []transformation.Options{{FetchFormat: format}}
	}
	out := append([]transformation.Options(nil), chain...)
	last := len(out) - 1
	if out[last].FetchFormat == "" {
		out[last].FetchFormat = format
	}
	return out
}

func joinNonBlank(separator string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, separator)
}
