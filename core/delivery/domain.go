package delivery

import (
	"hash/crc32"
	"strconv"
	"strings"
)

// shard picks the 1..5 subdomain index for a source path.
func shard(source string) int {
	return int(crc32.ChecksumIEEE([]byte(source))%5) + 1
}

// DistributionPrefix resolves scheme, host and the optional cloud name path
// segment for a delivery URL.
func (c Config) DistributionPrefix(source string) string {
	if strings.HasPrefix(c.CloudName, "/") {
		return "/res" + c.CloudName
	}

	sharedDomain := !c.PrivateCDN
	var prefix string
	switch {
	case c.Secure:
		distribution := c.SecureDistribution
		if distribution == "" || distribution == oldSharedCDN {
			if c.PrivateCDN {
				distribution = c.CloudName + "-res.cloudinary.com"
			} else {
				distribution = SharedCDN
			}
		}
		sharedDomain = sharedDomain || distribution == SharedCDN
		subdomain := false
		if c.SecureCDNSubdomain != nil {
			subdomain = *c.SecureCDNSubdomain
		} else if sharedDomain {
			subdomain = c.CDNSubdomain
		}
		if subdomain {
			distribution = strings.ReplaceAll(distribution, "res.cloudinary.com", "res-"+strconv.Itoa(shard(source))+".cloudinary.com")
		}
		prefix = "https://" + distribution
	case c.CName != "":
		subdomain := ""
		if c.CDNSubdomain {
			subdomain = "a" + strconv.Itoa(shard(source)) + "."
		}
		prefix = "http://" + subdomain + c.CName
	default:
		var host strings.Builder
		if c.PrivateCDN {
			host.WriteString(c.CloudName + "-")
		}
		host.WriteString("res")
		if c.CDNSubdomain {
			host.WriteString("-" + strconv.Itoa(shard(source)))
		}
		host.WriteString(".cloudinary.com")
		prefix = "http://" + host.String()
	}
	if sharedDomain {
		prefix += "/" + c.CloudName
	}
	return prefix
}
