package tagio

import (
	flac "github.com/go-flac/go-flac"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	"github.com/pkg/errors"
)

// flacVariant implements the Tag I/O contract for FLAC + Vorbis comments via
// github.com/go-flac/go-flac, flacvorbis and flacpicture.
type flacVariant struct{}

func (flacVariant) read(path string) (*Tags, error) {
	f, err := flac.ParseFile(path)
	if err != nil {
		return nil, newError(ErrCorruptContainer, path, errors.Wrap(err, "cannot parse FLAC file"))
	}

	cmt, _ := findVorbisComment(f)
	var t *Tags
	if cmt != nil {
		t = tagsFromVorbisComments(cmt.Comments)
	} else {
		t = &Tags{}
	}
	return t, nil
}

func (flacVariant) write(path string, t *Tags) error {
	f, err := flac.ParseFile(path)
	if err != nil {
		return newError(ErrCorruptContainer, path, errors.Wrap(err, "cannot parse FLAC file for write"))
	}

	cmt, idx := findVorbisComment(f)
	var existing []string
	vendor := "rosecache"
	if cmt != nil {
		existing = cmt.Comments
		vendor = cmt.Vendor
	}

	merged := flacvorbis.New()
	merged.Vendor = vendor
	for _, raw := range mergeVorbisComments(existing, t) {
		key, value := splitVorbisField(raw)
		if key == "" {
			continue
		}
		if err := merged.Add(key, value); err != nil {
			return newError(ErrIO, path, errors.Wrap(err, "cannot add vorbis comment"))
		}
	}

	block := merged.Marshal()
	if idx >= 0 {
		f.Meta[idx] = &block
	} else {
		f.Meta = append(f.Meta, &block)
	}

	if err := f.Save(path); err != nil {
		return newError(ErrIO, path, errors.Wrap(err, "cannot save FLAC file"))
	}
	return nil
}

func (flacVariant) extractCover(path string) ([]byte, error) {
	f, err := flac.ParseFile(path)
	if err != nil {
		return nil, newError(ErrCorruptContainer, path, errors.Wrap(err, "cannot parse FLAC file"))
	}

	for _, meta := range f.Meta {
		if meta.Type == flac.Picture {
			pic, err := flacpicture.ParseFromMetaDataBlock(*meta)
			if err != nil {
				continue
			}
			return pic.ImageData, nil
		}
	}
	return nil, nil
}

// findVorbisComment returns the first Vorbis comment metadata block in f,
// along with its index in f.Meta (-1 if absent).
func findVorbisComment(f *flac.File) (*flacvorbis.MetaDataBlockVorbisComment, int) {
	for idx, meta := range f.Meta {
		if meta.Type == flac.VorbisComment {
			cmt, err := flacvorbis.ParseFromMetaDataBlock(*meta)
			if err != nil {
				return nil, -1
			}
			return cmt, idx
		}
	}
	return nil, -1
}
