package cache

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	l "github.com/sirupsen/logrus"

	"gitlab.com/mipimipi/rosecache/internal/config"
	"gitlab.com/mipimipi/rosecache/internal/genreh"
	"gitlab.com/mipimipi/rosecache/internal/pathutil"
	"gitlab.com/mipimipi/rosecache/internal/tagio"
)

var releaseLog = l.WithFields(l.Fields{"pkg": "cache", "component": "release"})

// CachedTrackState is the subset of a previously cached track the scanner
// needs to decide whether it changed, supplied by the store layer so this
// package stays free of SQL.
type CachedTrackState struct {
	ID    string
	Mtime int64
}

// CachedReleaseState is the store-supplied prior state used for the mtime
// prefilter (spec.md §4.E step 3).
type CachedReleaseState struct {
	SidecarMtime int64
	Tracks       map[string]CachedTrackState // keyed by source path
}

// ScanOptions configures one release-directory scan pass.
type ScanOptions struct {
	Cfg   *config.Cfg
	Force bool
	// Prior is the cache's last-known state for this release, or nil if
	// the release has never been scanned.
	Prior *CachedReleaseState
}

// ScanRelease runs the full per-release pipeline described in spec.md §4.E
// against one release directory, returning nil (no change) when the
// release is unchanged and skipped, or a ReleaseChange otherwise.
func ScanRelease(dir string, opts ScanOptions) (*ReleaseChange, error) {
	log := releaseLog.WithFields(l.Fields{"dir": dir})

	sidecarPath, sidecarID, found, err := locateSidecar(dir)
	if err != nil {
		return nil, err
	}

	audioFiles, err := listAudioFiles(dir)
	if err != nil {
		return nil, err
	}

	var addedAt time.Time
	var isNew bool
	var releaseID string
	var sidecarMtime int64

	if found {
		releaseID = sidecarID
		addedAt, isNew, err = readSidecar(sidecarPath, sidecarID)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(sidecarPath)
		if err != nil {
			return nil, err
		}
		sidecarMtime = info.ModTime().Unix()
	} else {
		if guardErr := partialWriteGuard(audioFiles); guardErr != nil {
			log.WithFields(l.Fields{"err": guardErr}).Warn("skipping partially-written release directory")
			return nil, nil
		}
		releaseID = pathutil.NewID()
		addedAt = time.Now().UTC()
		isNew = true
	}

	if !opts.Force && opts.Prior != nil && opts.Prior.SidecarMtime == sidecarMtime && !anyTrackChanged(audioFiles, opts.Prior.Tracks) {
		return nil, nil
	}

	trackStates := map[string]trackScanResult{}
	var readErrs int
	for _, path := range audioFiles {
		info, statErr := os.Stat(path)
		if statErr != nil {
			log.WithFields(l.Fields{"path": path, "err": statErr}).Warn("cannot stat track, skipping")
			readErrs++
			continue
		}

		var priorID string
		var priorMtime int64
		if opts.Prior != nil {
			if cts, ok := opts.Prior.Tracks[path]; ok {
				priorID, priorMtime = cts.ID, cts.Mtime
			}
		}
		mtime := info.ModTime().Unix()

		tags, readErr := tagio.Read(path)
		if readErr != nil {
			log.WithFields(l.Fields{"path": path, "err": readErr}).Warn("unreadable track, skipping")
			readErrs++
			continue
		}

		trackID := tags.RoseTrackID
		if trackID == "" || (priorID != "" && trackID != priorID && !claimedElsewhere(trackID, trackStates)) {
			trackID = pathutil.NewID()
			tags.RoseTrackID = trackID
			if writeErr := tagio.Write(path, tags); writeErr != nil {
				log.WithFields(l.Fields{"path": path, "err": writeErr}).Warn("cannot embed track id, skipping track")
				readErrs++
				continue
			}
		}

		trackStates[path] = trackScanResult{
			id:      trackID,
			mtime:   mtime,
			tags:    tags,
			kind:    classifyTrack(priorID, priorMtime, mtime),
			srcPath: path,
		}
	}

	if readErrs > 0 {
		log.WithFields(l.Fields{"skipped": readErrs}).Warn("some tracks were unreadable and skipped")
	}
	if len(trackStates) == 0 {
		log.Info("release has zero readable tracks, evicting")
		return &ReleaseChange{Kind: ChangeDeleted, Release: Release{ID: releaseID, SourcePath: dir}}, nil
	}

	release := aggregateRelease(releaseID, dir, addedAt, isNew, trackStates, opts.Cfg)

	coverPath, coverErr := cacheCoverImage(opts.Cfg, releaseID, trackStates)
	if coverErr != nil {
		log.WithFields(l.Fields{"err": coverErr}).Warn("cover thumbnail caching failed, continuing without one")
	} else {
		release.CoverImagePath = coverPath
	}

	renamed, renameErr := planAndExecuteRenames(dir, release, trackStates, opts.Cfg)
	if renameErr != nil {
		log.WithFields(l.Fields{"err": renameErr}).Warn("rename planning failed, aborting this release's record")
		return nil, nil
	}

	newSidecarPath, newMtime, err := writeSidecar(dir, releaseID, addedAt, isNew)
	if err != nil {
		log.WithFields(l.Fields{"err": err}).Warn("sidecar write failed, aborting this release's record")
		return nil, nil
	}
	_ = newSidecarPath
	release.SidecarMtime = newMtime

	change := &ReleaseChange{Kind: changeKindFor(found), Release: release}
	for path, tr := range renamed {
		if tr.kind == ChangeUnchanged {
			continue
		}
		change.TrackChanges = append(change.TrackChanges, TrackChange{
			Kind:  tr.kind,
			Track: buildTrack(tr, release, path),
		})
	}
	sort.Slice(change.TrackChanges, func(i, j int) bool {
		return change.TrackChanges[i].Track.SourcePath < change.TrackChanges[j].Track.SourcePath
	})

	return change, nil
}

type trackScanResult struct {
	id      string
	mtime   int64
	tags    *tagio.Tags
	kind    ChangeKind
	srcPath string
}

func changeKindFor(existedBefore bool) ChangeKind {
	if existedBefore {
		return ChangeUpdated
	}
	return ChangeNew
}

// classifyTrack implements spec.md §4.E step 4's three-way track diff: a
// track with no prior id is new, one whose mtime moved is updated, and one
// whose mtime is unchanged is left alone (its cached row and FTS entry are
// not re-emitted this cycle).
func classifyTrack(priorID string, priorMtime, mtime int64) ChangeKind {
	if priorID == "" {
		return ChangeNew
	}
	if priorMtime != mtime {
		return ChangeUpdated
	}
	return ChangeUnchanged
}

func claimedElsewhere(id string, states map[string]trackScanResult) bool {
	for _, s := range states {
		if s.id == id {
			return true
		}
	}
	return false
}

// partialWriteGuard implements spec.md §4.E step 2: a directory with
// embedded track IDs but no sidecar is a half-moved directory, not a fresh
// release.
func partialWriteGuard(audioFiles []string) error {
	for _, path := range audioFiles {
		tags, err := tagio.Read(path)
		if err != nil {
			continue
		}
		if tags.RoseTrackID != "" {
			return errors.Errorf("track '%s' already embeds a Rosé id but no sidecar is present", path)
		}
	}
	return nil
}

func anyTrackChanged(audioFiles []string, prior map[string]CachedTrackState) bool {
	seen := map[string]bool{}
	for _, path := range audioFiles {
		seen[path] = true
		info, err := os.Stat(path)
		if err != nil {
			return true
		}
		cts, ok := prior[path]
		if !ok || cts.Mtime != info.ModTime().Unix() {
			return true
		}
	}
	for path := range prior {
		if !seen[path] {
			return true
		}
	}
	return false
}

// listAudioFiles walks dir recursively, since a release's audio files may
// live in nested subdirectories (e.g. per-disc folders) that the rename
// plan later flattens to the release root (spec.md §9 open question:
// "nested directories are always flattened").
func listAudioFiles(dir string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if tagio.Supports(filepath.Ext(d.Name())) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "cannot list release directory '%s'", dir)
	}
	sort.Strings(out)
	return out, nil
}

// aggregateRelease derives release-level fields from the track set by
// majority vote, per spec.md §4.E step 6.
func aggregateRelease(id, dir string, addedAt time.Time, isNew bool, tracks map[string]trackScanResult, cfg *config.Cfg) Release {
	var discs = map[string]bool{}
	yearVotes := map[int]int{}
	origYearVotes := map[int]int{}
	compYearVotes := map[int]int{}
	var releaseTypeTag tagio.ReleaseType
	genreSet := map[string]bool{}
	var genreOrder []string
	secondarySet := map[string]bool{}
	var secondaryOrder []string
	descriptorSet := map[string]bool{}
	var descriptorOrder []string
	labelSet := map[string]bool{}
	var labelOrder []string

	artistRoleVotes := map[tagio.ArtistRole]map[string]int{}
	titleVotes := map[string]int{}

	for _, tr := range tracks {
		t := tr.tags
		if t.DiscNumber != "" {
			discs[t.DiscNumber] = true
		}
		if t.Year != 0 {
			yearVotes[t.Year]++
		}
		if t.OriginalYear != 0 {
			origYearVotes[t.OriginalYear]++
		}
		if t.CompositionYear != 0 {
			compYearVotes[t.CompositionYear]++
		}
		if releaseTypeTag == "" && t.ReleaseType != "" && t.ReleaseType != tagio.ReleaseUnknown {
			releaseTypeTag = t.ReleaseType
		}
		for _, g := range genreh.EnrichSet(t.Genres) {
			if !genreSet[strings.ToLower(g)] {
				genreSet[strings.ToLower(g)] = true
				genreOrder = append(genreOrder, g)
			}
		}
		for _, g := range t.SecondaryGenres {
			if !secondarySet[strings.ToLower(g)] {
				secondarySet[strings.ToLower(g)] = true
				secondaryOrder = append(secondaryOrder, g)
			}
		}
		for _, d := range t.Descriptors {
			if !descriptorSet[strings.ToLower(d)] {
				descriptorSet[strings.ToLower(d)] = true
				descriptorOrder = append(descriptorOrder, d)
			}
		}
		for _, lbl := range t.Labels {
			if !labelSet[strings.ToLower(lbl)] {
				labelSet[strings.ToLower(lbl)] = true
				labelOrder = append(labelOrder, lbl)
			}
		}
		if t.Album != "" {
			titleVotes[t.Album]++
		}
		for _, entry := range t.ReleaseArtists {
			if artistRoleVotes[entry.Role] == nil {
				artistRoleVotes[entry.Role] = map[string]int{}
			}
			artistRoleVotes[entry.Role][entry.Name]++
		}
	}

	release := Release{
		ID:              id,
		SourcePath:      dir,
		AddedAt:         addedAt,
		Title:           majorityString(titleVotes),
		ReleaseType:     releaseTypeOrUnknown(releaseTypeTag),
		Year:            majorityInt(yearVotes),
		OriginalYear:    majorityInt(origYearVotes),
		CompositionYear: majorityInt(compYearVotes),
		Multidisc:       len(discs) > 1,
		New:             isNew,
		Descriptors:     descriptorOrder,
	}
	if release.Year == 0 {
		release.Year = release.OriginalYear
	}
	if release.Year == 0 {
		release.Year = release.CompositionYear
	}

	for _, g := range genreOrder {
		release.Genres = append(release.Genres, GenreEntry{Name: g, Sanitized: pathutil.SanitizeFilename(g, "", cfg.MaxFilenameBytes)})
	}
	for _, g := range secondaryOrder {
		release.SecondaryGenres = append(release.SecondaryGenres, GenreEntry{Name: g, Sanitized: pathutil.SanitizeFilename(g, "", cfg.MaxFilenameBytes)})
	}
	for _, lbl := range labelOrder {
		release.Labels = append(release.Labels, LabelEntry{Name: lbl, Sanitized: pathutil.SanitizeFilename(lbl, "", cfg.MaxFilenameBytes)})
	}

	for _, role := range tagio.AllRoles {
		votes := artistRoleVotes[role]
		if len(votes) == 0 {
			continue
		}
		for _, name := range majorityArtistSet(votes) {
			canonical, isAlias := cfg.ResolveArtistAlias(name)
			release.Artists = append(release.Artists, Artist{
				Name:      canonical,
				Sanitized: pathutil.SanitizeFilename(canonical, "", cfg.MaxFilenameBytes),
				Role:      role,
				IsAlias:   isAlias,
			})
		}
	}
	release.FormattedArtists = formatArtistRoster(release.Artists)

	return release
}

func releaseTypeOrUnknown(rt tagio.ReleaseType) tagio.ReleaseType {
	if rt == "" {
		return tagio.ReleaseUnknown
	}
	return rt
}

// majorityInt picks the most-voted key, with a lexicographically-smallest
// tie-break rendered via numeric comparison (spec.md §4.E "Tie-breaking").
func majorityInt(votes map[int]int) int {
	best, bestCount := 0, -1
	for v, c := range votes {
		if c > bestCount || (c == bestCount && v < best) {
			best, bestCount = v, c
		}
	}
	return best
}

func majorityString(votes map[string]int) string {
	best, bestCount := "", -1
	for v, c := range votes {
		if c > bestCount || (c == bestCount && (best == "" || v < best)) {
			best, bestCount = v, c
		}
	}
	return best
}

// majorityArtistSet returns every name tied for (or exceeding) the plurality
// vote count for a role, so a roster with several co-equal artists keeps
// all of them rather than arbitrarily picking one.
func majorityArtistSet(votes map[string]int) []string {
	max := 0
	for _, c := range votes {
		if c > max {
			max = c
		}
	}
	var out []string
	for name, c := range votes {
		if c == max {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func formatArtistRoster(artists []Artist) string {
	entries := make([]tagio.ArtistEntry, 0, len(artists))
	for _, a := range artists {
		entries = append(entries, tagio.ArtistEntry{Name: a.Name, Role: a.Role})
	}
	return tagio.FormatArtistString(entries)
}

// planAndExecuteRenames implements spec.md §4.E steps 7-8: render, sanitize,
// flatten to the release root, de-duplicate with "  [N]" suffixes, then
// rename on disk.
func planAndExecuteRenames(dir string, release Release, tracks map[string]trackScanResult, cfg *config.Cfg) (map[string]trackScanResult, error) {
	type planned struct {
		srcPath string
		newName string
		tr      trackScanResult
	}

	ordered := make([]planned, 0, len(tracks))
	for path, tr := range tracks {
		track := Track{
			Title:       tr.tags.Title,
			TrackNumber: tr.tags.TrackNumber,
			DiscNumber:  tr.tags.DiscNumber,
		}
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		rendered, err := RenderTrackPath(cfg.PathTemplate, track, release, stem)
		if err != nil {
			rendered = stem
		}
		ext := filepath.Ext(path)
		name := pathutil.SanitizeFilename(rendered, ext, cfg.MaxFilenameBytes)
		ordered = append(ordered, planned{srcPath: path, newName: name, tr: tr})
	}

	sort.Slice(ordered, func(i, j int) bool {
		di, dj := ordered[i].tr.tags.DiscNumber, ordered[j].tr.tags.DiscNumber
		if di != dj {
			return di < dj
		}
		return ordered[i].tr.tags.TrackNumber < ordered[j].tr.tags.TrackNumber
	})

	seen := map[string]int{}
	result := make(map[string]trackScanResult, len(ordered))
	originalDirs := map[string]bool{}
	for _, p := range ordered {
		name := p.newName
		ext := filepath.Ext(name)
		base := strings.TrimSuffix(name, ext)
		seen[name]++
		if n := seen[name]; n > 1 {
			name = pathutil.WithCollisionSuffix(base, ext, n, cfg.MaxFilenameBytes)
		}

		newPath := filepath.Join(dir, name)
		if newPath != p.srcPath {
			if err := os.Rename(p.srcPath, newPath); err != nil {
				return nil, errors.Wrapf(err, "cannot rename '%s' to '%s'", p.srcPath, newPath)
			}
			if srcDir := filepath.Dir(p.srcPath); srcDir != dir {
				originalDirs[srcDir] = true
			}
		}
		result[newPath] = trackScanResult{id: p.tr.id, mtime: p.tr.mtime, tags: p.tr.tags, kind: p.tr.kind, srcPath: newPath}
	}
	for srcDir := range originalDirs {
		removeEmptyAncestors(srcDir, dir)
	}
	return result, nil
}

func buildTrack(tr trackScanResult, r Release, path string) Track {
	t := tr.tags
	artists := make([]Artist, 0, len(t.TrackArtists))
	for _, entry := range t.TrackArtists {
		artists = append(artists, Artist{Name: entry.Name, Role: entry.Role})
	}
	return Track{
		ID:                tr.id,
		ReleaseID:         r.ID,
		SourcePath:        path,
		SourceMtime:       tr.mtime,
		VirtualFilename:   filepath.Base(path),
		Title:             t.Title,
		TrackNumber:       t.TrackNumber,
		DiscNumber:        t.DiscNumber,
		FormattedPosition: FormatPosition(t.DiscNumber, t.TrackNumber),
		Duration:          t.Duration,
		FormattedArtists:  tagio.FormatArtistString(t.TrackArtists),
		Artists:           artists,
	}
}

// removeEmptyAncestors walks up from dir (but never above root) removing
// directories left empty by the flattening rename pass, per spec.md §4.E
// step 8.
func removeEmptyAncestors(dir, root string) {
	for dir != root {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}
