package search

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/forem/mediaurl/core/delivery"
	coreerrors "github.com/forem/mediaurl/core/errors"
	"github.com/forem/mediaurl/core/jcs"
	"github.com/forem/mediaurl/core/metrics"
	"github.com/forem/mediaurl/core/sign"
)

const DefaultTTL = 300

var (
	ErrMissingSecret = errors.New("missing api secret")
	ErrInvalidQuery  = errors.New("invalid search query")
)

// Builder accumulates a search query. Repeated sort fields, aggregates and
// fields replace earlier entries with the same name in place.
type Builder struct {
	expression string
	maxResults int
	nextCursor string
	sortBy     []named[map[string]string]
	aggregate  []named[string]
	withField  []named[string]
	fields     []named[string]
	ttl        int
}

type named[V any] struct {
	name  string
	value V
}

func upsert[V any](entries []named[V], name string, value V) []named[V] {
	for i := range entries {
		if entries[i].name == name {
			entries[i].value = value
			return entries
		}
	}
	return append(entries, named[V]{name: name, value: value})
}

func values[V any](entries []named[V]) []V {
	out := make([]V, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.value)
	}
	return out
}

func New() *Builder {
	return &Builder{ttl: DefaultTTL}
}

func (b *Builder) Expression(value string) *Builder {
	b.expression = value
	return b
}

func (b *Builder) MaxResults(value int) *Builder {
	b.maxResults = value
	return b
}

func (b *Builder) NextCursor(value string) *Builder {
	b.nextCursor = value
	return b
}

// SortBy orders by field; an empty direction means "desc".
func (b *Builder) SortBy(field, direction string) *Builder {
	if direction == "" {
		direction = "desc"
	}
	b.sortBy = upsert(b.sortBy, field, map[string]string{field: direction})
	return b
}

func (b *Builder) Aggregate(value string) *Builder {
	b.aggregate = upsert(b.aggregate, value, value)
	return b
}

func (b *Builder) WithField(value string) *Builder {
	b.withField = upsert(b.withField, value, value)
	return b
}

func (b *Builder) Fields(values ...string) *Builder {
	for _, value := range values {
		b.fields = upsert(b.fields, value, value)
	}
	return b
}

// TTL sets the lifetime in seconds of URLs built by ToURL.
func (b *Builder) TTL(seconds int) *Builder {
	b.ttl = seconds
	return b
}

// Map returns the canonical query: blank values and empty lists dropped,
// keyed entries flattened to their value lists.
func (b *Builder) Map() map[string]any {
	query := map[string]any{}
	if b.expression != "" {
		query["expression"] = b.expression
	}
	if b.maxResults > 0 {
		query["max_results"] = b.maxResults
	}
	if b.nextCursor != "" {
		query["next_cursor"] = b.nextCursor
	}
	if len(b.sortBy) > 0 {
		query["sort_by"] = values(b.sortBy)
	}
	if len(b.aggregate) > 0 {
		query["aggregate"] = values(b.aggregate)
	}
	if len(b.withField) > 0 {
		query["with_field"] = values(b.withField)
	}
	if len(b.fields) > 0 {
		query["fields"] = values(b.fields)
	}
	return query
}

// JSON is the canonical JSON encoding of Map.
func (b *Builder) JSON() ([]byte, error) {
	return jcs.Marshal(b.Map())
}

// ToURL builds <prefix>/search/<signature>/<ttl>/<b64query>[/<cursor>].
// A zero ttl uses the builder's ttl; an empty cursor uses the builder's
// next_cursor, which never appears inside the encoded query.
func (b *Builder) ToURL(config delivery.Config, ttl int, nextCursor string) (string, error) {
	if config.APISecret == "" {
		return "", coreerrors.Configuration(ErrMissingSecret, "missing_api_secret", "api secret is required for search urls")
	}
	if strings.TrimSpace(config.CloudName) == "" {
		return "", coreerrors.Configuration(delivery.ErrMissingCloudName, "missing_cloud_name", "cloud name is required")
	}
	if ttl <= 0 {
		ttl = b.ttl
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	query := b.Map()
	if cursor, ok := query["next_cursor"].(string); ok {
		delete(query, "next_cursor")
		if nextCursor == "" {
			nextCursor = cursor
		}
	}
	encoded, err := jcs.Marshal(query)
	if err != nil {
		return "", coreerrors.Wrap(err, coreerrors.CategoryInternalFailure, "encode_query", "", false)
	}
	b64query := base64.URLEncoding.EncodeToString(encoded)
	ttlText := strconv.Itoa(ttl)

	digest, err := sign.Digest(ttlText+b64query+config.APISecret, config.APISecret, sign.AlgSHA256)
	if err != nil {
		return "", err
	}
	metrics.RecordSignature("search")
	url := config.DistributionPrefix("") + "/search/" + hex.EncodeToString(digest) + "/" + ttlText + "/" + b64query
	if nextCursor != "" {
		url += "/" + nextCursor
	}
	return url, nil
}

// SignedBody is a search request ready to POST.
type SignedBody struct {
	Query     string `json:"query"`
	Timestamp int64  `json:"timestamp"`
	Signature string `json:"signature"`
	APIKey    string `json:"api_key"`
}

// Signed signs the canonical query JSON with a timestamp using the request
// signer.
func (b *Builder) Signed(ctx sign.Context, now time.Time) (SignedBody, error) {
	encoded, err := b.JSON()
	if err != nil {
		return SignedBody{}, coreerrors.Wrap(err, coreerrors.CategoryInternalFailure, "encode_query", "", false)
	}
	params, err := sign.SignRequest(map[string]any{
		"query":     string(encoded),
		"timestamp": now.Unix(),
	}, ctx)
	if err != nil {
		return SignedBody{}, err
	}
	return SignedBody{
		Query:     string(encoded),
		Timestamp: now.Unix(),
		Signature: params["signature"].(string),
		APIKey:    ctx.Key,
	}, nil
}
