package reconcile

import (
	"net/url"
	"sort"
	"strings"

	"github.com/fontintel/fontintel/internal/model"
)

// Citation source types.
const (
	CitationFoundrySite = "foundry_site"
	CitationDistributor = "distributor"
	CitationRepository  = "repository"
	CitationReference   = "reference"
	CitationUnknown     = "unknown"
)

// Foundry types.
const (
	FoundryMajor       = "major"
	FoundryIndependent = "independent"
	FoundryOpenSource  = "open_source"
)

// Distribution channels.
const (
	ChannelGoogleFonts  = "google_fonts"
	ChannelAdobeFonts   = "adobe_fonts"
	ChannelMyFonts      = "myfonts"
	ChannelGitHub       = "github"
	ChannelFontSquirrel = "fontsquirrel"
	ChannelDirect       = "direct"
)

// License flags.
const (
	LicenseOFL          = "ofl"
	LicenseApache       = "apache"
	LicenseCommercial   = "commercial"
	LicenseFreePersonal = "free_personal"
)

// hostChannels maps a citation host (without "www.") to its distribution
// channel.
var hostChannels = map[string]string{
	"fonts.google.com":     ChannelGoogleFonts,
	"fonts.googleapis.com": ChannelGoogleFonts,
	"fonts.adobe.com":      ChannelAdobeFonts,
	"typekit.com":          ChannelAdobeFonts,
	"myfonts.com":          ChannelMyFonts,
	"github.com":           ChannelGitHub,
	"fontsquirrel.com":     ChannelFontSquirrel,
}

var hostCitationTypes = map[string]string{
	"fonts.google.com":     CitationDistributor,
	"fonts.googleapis.com": CitationDistributor,
	"fonts.adobe.com":      CitationDistributor,
	"typekit.com":          CitationDistributor,
	"myfonts.com":          CitationDistributor,
	"fonts.com":            CitationDistributor,
	"fontspring.com":       CitationDistributor,
	"fontsquirrel.com":     CitationDistributor,
	"dafont.com":           CitationDistributor,
	"github.com":           CitationRepository,
	"gitlab.com":           CitationRepository,
	"sourceforge.net":      CitationRepository,
	"wikipedia.org":        CitationReference,
	"fontsinuse.com":       CitationReference,
	"typewolf.com":         CitationReference,
	"identifont.com":       CitationReference,
	"luc.devroye.org":      CitationReference,
}

// majorFoundries are matched as substrings of the folded foundry name or
// citation host.
var majorFoundries = []string{
	"monotype", "linotype", "adobe", "typography.com", "hoefler", "commercial type",
	"commercialtype", "fontfont", "bitstream", "berthold", "dalton maag", "daltonmaag",
}

var foundrySiteHints = []string{"type", "foundry", "fonts"}

// DeriveInsight derives best-effort source insight from citation URLs, the
// license text embedded in the font and the reconciled foundry name.
func DeriveInsight(citations []string, licenseText, foundry string) model.SourceInsight {
	var ins model.SourceInsight
	flags := make(map[string]bool)
	openSource := false
	major := containsAny(strings.ToLower(foundry), majorFoundries)

	addLicenseFlags(strings.ToLower(licenseText), flags)

	for _, raw := range citations {
		u, err := url.Parse(strings.TrimSpace(raw))
		if err != nil || u.Host == "" {
			continue
		}
		host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
		path := strings.ToLower(u.Path)

		if ins.DistributionChannel == "" {
			ins.DistributionChannel = hostChannels[host]
		}
		if ins.CitationSourceType == "" || ins.CitationSourceType == CitationUnknown {
			ins.CitationSourceType = citationType(host, foundry)
		}
		switch hostChannels[host] {
		case ChannelGoogleFonts, ChannelGitHub, ChannelFontSquirrel:
			openSource = true
		}
		if containsAny(host, majorFoundries) {
			major = true
		}

		addLicenseFlags(host+path, flags)
		switch host {
		case "myfonts.com", "fonts.com", "fontspring.com":
			flags[LicenseCommercial] = true
		case "dafont.com":
			if strings.Contains(path, "personal") {
				flags[LicenseFreePersonal] = true
			}
		}
	}

	if ins.DistributionChannel == "" && ins.CitationSourceType == CitationFoundrySite {
		ins.DistributionChannel = ChannelDirect
	}
	if flags[LicenseOFL] || flags[LicenseApache] {
		openSource = true
	}

	switch {
	case major:
		ins.FoundryType = FoundryMajor
	case openSource:
		ins.FoundryType = FoundryOpenSource
	case foundry != "":
		ins.FoundryType = FoundryIndependent
	}

	for f := range flags {
		ins.LicenseFlags = append(ins.LicenseFlags, f)
	}
	sort.Strings(ins.LicenseFlags)
	return ins
}

func citationType(host, foundry string) string {
	if t, ok := hostCitationTypes[host]; ok {
		return t
	}
	for h, t := range hostCitationTypes {
		if strings.HasSuffix(host, "."+h) {
			return t
		}
	}
	for _, word := range strings.Fields(strings.ToLower(foundry)) {
		if len(word) >= 4 && strings.Contains(host, word) {
			return CitationFoundrySite
		}
	}
	if containsAny(host, foundrySiteHints) {
		return CitationFoundrySite
	}
	return CitationUnknown
}

func addLicenseFlags(s string, flags map[string]bool) {
	if s == "" {
		return
	}
	switch {
	case strings.Contains(s, "open font license"), strings.Contains(s, "openfontlicense"),
		strings.Contains(s, "scripts.sil.org"), strings.Contains(s, "/ofl"):
		flags[LicenseOFL] = true
	}
	if strings.Contains(s, "apache license") || strings.Contains(s, "apache.org/licenses") {
		flags[LicenseApache] = true
	}
	if strings.Contains(s, "free for personal use") || strings.Contains(s, "personal use only") {
		flags[LicenseFreePersonal] = true
	}
	if strings.Contains(s, "all rights reserved") && strings.Contains(s, "license") {
		flags[LicenseCommercial] = true
	}
}

func containsAny(s string, needles []string) bool {
	if s == "" {
		return false
	}
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
