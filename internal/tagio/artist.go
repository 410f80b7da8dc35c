package tagio

import "strings"

// ParseArtistString parses the on-disk artist-roster grammar (spec.md §4.A):
//
//	name-list   = name (';' name)*
//	artist-tag  = [composer ' performed by '] [dj ' pres. '] main
//	              [' feat. ' guest] [' remixed by ' remixer]
//	              [' produced by ' producer]
//
// Parsing is total: text that doesn't match a recognized connector falls
// entirely into the main name-list.
func ParseArtistString(s string) []ArtistEntry {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	var entries []ArtistEntry

	rest := s

	if idx := strings.Index(rest, " performed by "); idx >= 0 {
		composers := rest[:idx]
		rest = rest[idx+len(" performed by "):]
		entries = append(entries, namesWithRole(composers, RoleComposer)...)
	}

	if idx := strings.Index(rest, " pres. "); idx >= 0 {
		djs := rest[:idx]
		rest = rest[idx+len(" pres. "):]
		entries = append(entries, namesWithRole(djs, RoleDJMixer)...)
	}

	main := rest
	var guest, remixer, producer string

	if idx := strings.Index(rest, " produced by "); idx >= 0 {
		producer = rest[idx+len(" produced by "):]
		main = rest[:idx]
	}
	if idx := strings.Index(main, " remixed by "); idx >= 0 {
		remixer = main[idx+len(" remixed by "):]
		main = main[:idx]
	}
	if idx := strings.Index(main, " feat. "); idx >= 0 {
		guest = main[idx+len(" feat. "):]
		main = main[:idx]
	}

	entries = append(entries, namesWithRole(main, RoleMain)...)
	entries = append(entries, namesWithRole(guest, RoleGuest)...)
	entries = append(entries, namesWithRole(remixer, RoleRemixer)...)
	entries = append(entries, namesWithRole(producer, RoleProducer)...)

	return entries
}

func namesWithRole(nameList string, role ArtistRole) []ArtistEntry {
	nameList = strings.TrimSpace(nameList)
	if nameList == "" {
		return nil
	}
	var out []ArtistEntry
	for _, n := range strings.Split(nameList, ";") {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		out = append(out, ArtistEntry{Name: n, Role: role})
	}
	return out
}

// FormatArtistString renders entries back into the on-disk grammar,
// deterministically and losslessly for the roles the grammar defines. The
// role groups are concatenated in grammar order regardless of the input
// order of entries.
func FormatArtistString(entries []ArtistEntry) string {
	byRole := map[ArtistRole][]string{}
	for _, e := range entries {
		byRole[e.Role] = append(byRole[e.Role], e.Name)
	}

	var b strings.Builder
	if names := byRole[RoleComposer]; len(names) > 0 {
		b.WriteString(strings.Join(names, "; "))
		b.WriteString(" performed by ")
	}
	if names := byRole[RoleDJMixer]; len(names) > 0 {
		b.WriteString(strings.Join(names, "; "))
		b.WriteString(" pres. ")
	}
	b.WriteString(strings.Join(byRole[RoleMain], "; "))
	if names := byRole[RoleGuest]; len(names) > 0 {
		b.WriteString(" feat. ")
		b.WriteString(strings.Join(names, "; "))
	}
	if names := byRole[RoleRemixer]; len(names) > 0 {
		b.WriteString(" remixed by ")
		b.WriteString(strings.Join(names, "; "))
	}
	if names := byRole[RoleProducer]; len(names) > 0 {
		b.WriteString(" produced by ")
		b.WriteString(strings.Join(names, "; "))
	}
	return b.String()
}

// FormattedArtists renders the ordering-preserving display form used for
// release.formatted_artists / track.formatted_artists (spec.md §3): main
// artists joined by "; ", with guest/remixer/producer/composer annotations
// appended the same way the on-disk grammar does, so the display string and
// the stored tag read identically to a human.
func FormattedArtists(entries []ArtistEntry) string {
	return FormatArtistString(entries)
}
