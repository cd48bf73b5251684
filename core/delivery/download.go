package delivery

import (
	"net/url"

	coreerrors "github.com/forem/mediaurl/core/errors"
	"github.com/forem/mediaurl/core/metrics"
	"github.com/forem/mediaurl/core/sign"
)

// DownloadOptions narrows a private download to one delivery type and
// optionally forces an attachment disposition or an expiry.
type DownloadOptions struct {
	ResourceType string
	DeliveryType string
	Attachment   bool
	ExpiresAt    int64
}

// APIURL returns <api_prefix>/v1_1/<cloud_name>/<resource_type>/<action>.
func APIURL(config Config, resourceType, action string) (string, error) {
	if config.CloudName == "" {
		return "", coreerrors.Configuration(ErrMissingCloudName, "missing_cloud_name", "cloud name is required")
	}
	if resourceType == "" {
		resourceType = "image"
	}
	return joinNonBlank("/", config.apiPrefix(), "v1_1", config.CloudName, resourceType, action), nil
}

// PrivateDownloadURL builds a signed, time stamped API download URL for an
// asset that is not publicly deliverable.
func PrivateDownloadURL(config Config, publicID, format string, options DownloadOptions) (string, error) {
	if publicID == "" {
		return "", coreerrors.Validation(ErrMissingPublicID, "missing_public_id", "public id is required")
	}
	endpoint, err := APIURL(config, options.ResourceType, "download")
	if err != nil {
		return "", err
	}
	params := map[string]any{
		"timestamp": config.now().Unix(),
		"public_id": publicID,
		"format":    format,
		"type":      options.DeliveryType,
	}
	if options.Attachment {
		params["attachment"] = true
	}
	if options.ExpiresAt > 0 {
		params["expires_at"] = options.ExpiresAt
	}
	signed, err := sign.SignRequest(params, config.Signing())
	if err != nil {
		return "", err
	}
	metrics.RecordSignature("download")
	query := url.Values{}
	for key, value := range signed {
		query.Set(key, sign.Stringify(value))
	}
	return endpoint + "?" + query.Encode(), nil
}
