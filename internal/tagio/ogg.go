package tagio

import (
	"bytes"
	"encoding/binary"
	"os"
	"strconv"

	"github.com/dhowden/tag"
	"github.com/pkg/errors"
)

// oggVariant implements the Tag I/O contract for Ogg Vorbis (.ogg) and Opus
// (.opus), which both carry Vorbis-style comments but inside an Ogg page
// container rather than a FLAC metadata block. No library in the retrieval
// pack exposes a write path for Ogg comment headers (github.com/dhowden/tag
// is read-only; github.com/jfreymuth/vorbis and github.com/jj11hh/opus are
// playback decoders with no encode path) — see DESIGN.md. Reading is done
// with dhowden/tag like the teacher does for every format; writing is done
// directly against the documented Ogg page-framing format.
type oggVariant struct {
	container Format
}

func (v oggVariant) read(path string) (*Tags, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, newError(ErrIO, path, errors.Wrap(err, "cannot open file"))
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, newError(ErrCorruptContainer, path, errors.Wrap(err, "cannot read tags"))
	}

	t := &Tags{
		Title:        m.Title(),
		Album:        m.Album(),
		Genres:       splitSemicolon(m.Genre()),
		Year:         m.Year(),
		TrackArtists: ParseArtistString(m.Artist()),
	}
	trackNo, _ := m.Track()
	if trackNo != 0 {
		t.TrackNumber = strconv.Itoa(trackNo)
	}
	discNo, _ := m.Disc()
	if discNo != 0 {
		t.DiscNumber = strconv.Itoa(discNo)
	}
	if aa := m.AlbumArtist(); aa != "" {
		t.ReleaseArtists = ParseArtistString(aa)
	}
	raw := m.Raw()
	if v, ok := raw[vcRoseTrackID]; ok {
		t.RoseTrackID = toString(v)
	}
	if v, ok := raw[vcRoseReleaseID]; ok {
		t.RoseReleaseID = toString(v)
	}
	if v, ok := raw[vcSecondaryGenre]; ok {
		t.SecondaryGenres = splitSemicolon(toString(v))
	}
	if v, ok := raw[vcDescriptor]; ok {
		t.Descriptors = splitSemicolon(toString(v))
	}
	if v, ok := raw[vcLabel]; ok {
		t.Labels = splitSemicolon(toString(v))
	}
	if v, ok := raw[vcEdition]; ok {
		t.Edition = toString(v)
	}
	if v, ok := raw[vcCatalogNumber]; ok {
		t.CatalogNumber = toString(v)
	}
	if v, ok := raw[vcReleaseType]; ok {
		t.ReleaseType = ReleaseTypeFromString(toString(v))
	}

	return t, nil
}

func (v oggVariant) write(path string, t *Tags) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return newError(ErrIO, path, errors.Wrap(err, "cannot read file"))
	}

	pages, err := parseOggPages(raw)
	if err != nil {
		return newError(ErrCorruptContainer, path, errors.Wrap(err, "cannot parse Ogg pages"))
	}
	packets, pageOf, err := demuxPackets(pages)
	if err != nil {
		return newError(ErrCorruptContainer, path, errors.Wrap(err, "cannot demux Ogg packets"))
	}
	if len(packets) < 2 {
		return newError(ErrCorruptContainer, path, errors.New("Ogg stream has no comment header packet"))
	}

	var existing []string
	switch v.container {
	case FormatOpus:
		existing, err = parseOpusTagsPacket(packets[1])
	default:
		existing, err = parseVorbisCommentPacket(packets[1])
	}
	if err != nil {
		return newError(ErrCorruptContainer, path, errors.Wrap(err, "cannot parse comment header packet"))
	}

	merged := mergeVorbisComments(existing, t)

	switch v.container {
	case FormatOpus:
		packets[1] = buildOpusTagsPacket(merged)
	default:
		packets[1] = buildVorbisCommentPacket(merged)
	}

	out, err := remuxOggPackets(pages, packets, pageOf)
	if err != nil {
		return newError(ErrIO, path, errors.Wrap(err, "cannot remux Ogg stream"))
	}

	if err := os.WriteFile(path, out, 0o644); err != nil {
		return newError(ErrIO, path, errors.Wrap(err, "cannot write Ogg file"))
	}
	return nil
}

func (v oggVariant) extractCover(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, newError(ErrIO, path, errors.Wrap(err, "cannot open file"))
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, newError(ErrCorruptContainer, path, errors.Wrap(err, "cannot read tags"))
	}
	pic := m.Picture()
	if pic == nil {
		return nil, nil
	}
	return pic.Data, nil
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// --- Ogg page framing (RFC 3533) ---

const oggCapturePattern = "OggS"

type oggPage struct {
	headerType byte
	granule    uint64
	serial     uint32
	seq        uint32
	segments   []byte
	data       []byte
}

const (
	oggFlagContinued = 0x01
	oggFlagBOS       = 0x02
	oggFlagEOS       = 0x04
)

func parseOggPages(raw []byte) ([]oggPage, error) {
	var pages []oggPage
	pos := 0
	for pos < len(raw) {
		if pos+27 > len(raw) || string(raw[pos:pos+4]) != oggCapturePattern {
			return nil, errors.New("invalid Ogg capture pattern")
		}
		headerType := raw[pos+5]
		granule := binary.LittleEndian.Uint64(raw[pos+6 : pos+14])
		serial := binary.LittleEndian.Uint32(raw[pos+14 : pos+18])
		seq := binary.LittleEndian.Uint32(raw[pos+18 : pos+22])
		segCount := int(raw[pos+26])
		segStart := pos + 27
		if segStart+segCount > len(raw) {
			return nil, errors.New("truncated Ogg page segment table")
		}
		segments := raw[segStart : segStart+segCount]
		dataLen := 0
		for _, s := range segments {
			dataLen += int(s)
		}
		dataStart := segStart + segCount
		if dataStart+dataLen > len(raw) {
			return nil, errors.New("truncated Ogg page data")
		}
		data := raw[dataStart : dataStart+dataLen]

		pages = append(pages, oggPage{
			headerType: headerType,
			granule:    granule,
			serial:     serial,
			seq:        seq,
			segments:   append([]byte{}, segments...),
			data:       append([]byte{}, data...),
		})
		pos = dataStart + dataLen
	}
	if len(pages) == 0 {
		return nil, errors.New("no Ogg pages found")
	}
	return pages, nil
}

// demuxPackets reconstructs logical packets from a page sequence, and
// records, for each packet, the index of the page its last byte landed on
// (pageOf), which remuxOggPackets uses to keep audio-bearing pages grouped
// the way the encoder originally laid them out.
func demuxPackets(pages []oggPage) (packets [][]byte, pageOf []int, err error) {
	var cur bytes.Buffer
	for pageIdx, p := range pages {
		offset := 0
		for i, segLen := range p.segments {
			cur.Write(p.data[offset : offset+int(segLen)])
			offset += int(segLen)
			lastSegmentOfPage := i == len(p.segments)-1
			if segLen < 255 {
				packets = append(packets, append([]byte{}, cur.Bytes()...))
				pageOf = append(pageOf, pageIdx)
				cur.Reset()
			} else if lastSegmentOfPage {
				// packet continues onto the next page
			}
		}
	}
	if cur.Len() > 0 {
		return nil, nil, errors.New("Ogg stream ends mid-packet")
	}
	return packets, pageOf, nil
}

// remuxOggPackets rebuilds a full Ogg bitstream from packets. Packet 0 (the
// identification header) and packet 1 (the comment header) are each given
// their own fresh page, since consecutive packets need not share a page.
// Every later packet is placed whole on one output page per source page its
// last byte landed on, carrying that source page's granule position and EOS
// flag; the continuation flag is never set. Where no audio packet crossed a
// source page boundary, audio pages match the source byte-for-byte apart
// from the shifted page sequence number and recomputed checksum; a packet
// that did cross one is written entirely on the page where it ended.
func remuxOggPackets(origPages []oggPage, packets [][]byte, origPageOf []int) ([]byte, error) {
	if len(packets) < 2 {
		return nil, errors.New("need at least identification and comment packets")
	}
	serial := origPages[0].serial

	var out bytes.Buffer
	seq := uint32(0)

	writePage := func(headerType byte, granule uint64, segments []byte, data []byte) {
		var page bytes.Buffer
		page.WriteString(oggCapturePattern)
		page.WriteByte(0) // version
		page.WriteByte(headerType)
		var granuleBuf [8]byte
		binary.LittleEndian.PutUint64(granuleBuf[:], granule)
		page.Write(granuleBuf[:])
		var serialBuf [4]byte
		binary.LittleEndian.PutUint32(serialBuf[:], serial)
		page.Write(serialBuf[:])
		var seqBuf [4]byte
		binary.LittleEndian.PutUint32(seqBuf[:], seq)
		page.Write(seqBuf[:])
		page.Write([]byte{0, 0, 0, 0}) // checksum placeholder
		page.WriteByte(byte(len(segments)))
		page.Write(segments)
		page.Write(data)

		buf := page.Bytes()
		crc := oggChecksum(buf)
		binary.LittleEndian.PutUint32(buf[22:26], crc)
		out.Write(buf)
		seq++
	}

	segmentsFor := func(n int) []byte {
		segs := make([]byte, n/255)
		for i := range segs {
			segs[i] = 255
		}
		segs = append(segs, byte(n%255))
		return segs
	}

	// packet 0: identification header, solo page, BOS set
	writePage(oggFlagBOS, 0, segmentsFor(len(packets[0])), packets[0])
	// packet 1: comment header (freshly built), solo page
	writePage(0, 0, segmentsFor(len(packets[1])), packets[1])

	// remaining packets: group by the source page each packet ended on.
	pageIdx := -1
	var curData bytes.Buffer
	var curSegs []byte
	flushPage := func(granule uint64, eos bool) {
		if curData.Len() == 0 && len(curSegs) == 0 {
			return
		}
		ht := byte(0)
		if eos {
			ht |= oggFlagEOS
		}
		writePage(ht, granule, curSegs, curData.Bytes())
		curData.Reset()
		curSegs = nil
	}

	for i := 2; i < len(packets); i++ {
		origIdx := origPageOf[i]
		if origIdx != pageIdx {
			if pageIdx != -1 {
				eos := origPages[pageIdx].headerType&oggFlagEOS != 0
				flushPage(origPages[pageIdx].granule, eos)
			}
			pageIdx = origIdx
		}
		n := len(packets[i])
		segs := make([]byte, n/255)
		for j := range segs {
			segs[j] = 255
		}
		segs = append(segs, byte(n%255))
		curSegs = append(curSegs, segs...)
		curData.Write(packets[i])
	}
	if pageIdx != -1 {
		eos := origPages[pageIdx].headerType&oggFlagEOS != 0
		flushPage(origPages[pageIdx].granule, eos)
	}

	return out.Bytes(), nil
}

// oggChecksum implements the CRC-32 variant mandated by RFC 3533 §6
// (polynomial 0x04c11db7, no input/output reflection, zero initial value),
// with the page's own checksum field treated as zero while computing it.
func oggChecksum(page []byte) uint32 {
	var crc uint32
	for _, b := range page {
		crc = oggCRCTable[byte(crc>>24)^b] ^ (crc << 8)
	}
	return crc
}

var oggCRCTable = func() [256]uint32 {
	const poly = 0x04c11db7
	var table [256]uint32
	for i := 0; i < 256; i++ {
		crc := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if crc&0x80000000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
		table[i] = crc
	}
	return table
}()

// --- Vorbis comment header packet (used by Ogg Vorbis) ---

func parseVorbisCommentPacket(packet []byte) ([]string, error) {
	if len(packet) < 7 || packet[0] != 3 || string(packet[1:7]) != "vorbis" {
		return nil, errors.New("not a Vorbis comment packet")
	}
	return parseCommentFields(packet[7:])
}

func buildVorbisCommentPacket(comments []string) []byte {
	var b bytes.Buffer
	b.WriteByte(3)
	b.WriteString("vorbis")
	writeCommentFields(&b, comments, "rosecache")
	b.WriteByte(1) // framing bit
	return b.Bytes()
}

// --- Opus tags packet (used by Ogg Opus; RFC 7845 §5.2, no framing bit) ---

func parseOpusTagsPacket(packet []byte) ([]string, error) {
	if len(packet) < 8 || string(packet[0:8]) != "OpusTags" {
		return nil, errors.New("not an OpusTags packet")
	}
	return parseCommentFields(packet[8:])
}

func buildOpusTagsPacket(comments []string) []byte {
	var b bytes.Buffer
	b.WriteString("OpusTags")
	writeCommentFields(&b, comments, "rosecache")
	return b.Bytes()
}

func parseCommentFields(body []byte) ([]string, error) {
	if len(body) < 4 {
		return nil, errors.New("comment header too short")
	}
	vendorLen := int(binary.LittleEndian.Uint32(body[0:4]))
	pos := 4 + vendorLen
	if pos+4 > len(body) {
		return nil, errors.New("comment header truncated at vendor")
	}
	count := int(binary.LittleEndian.Uint32(body[pos : pos+4]))
	pos += 4

	comments := make([]string, 0, count)
	for i := 0; i < count; i++ {
		if pos+4 > len(body) {
			return nil, errors.New("comment header truncated at field length")
		}
		fieldLen := int(binary.LittleEndian.Uint32(body[pos : pos+4]))
		pos += 4
		if pos+fieldLen > len(body) {
			return nil, errors.New("comment header truncated at field value")
		}
		comments = append(comments, string(body[pos:pos+fieldLen]))
		pos += fieldLen
	}
	return comments, nil
}

func writeCommentFields(b *bytes.Buffer, comments []string, vendor string) {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(vendor)))
	b.Write(lenBuf[:])
	b.WriteString(vendor)

	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(comments)))
	b.Write(lenBuf[:])
	for _, c := range comments {
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(c)))
		b.Write(lenBuf[:])
		b.WriteString(c)
	}
}
