package tagio

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVorbisCommentPacket_RoundTrip(t *testing.T) {
	packet := buildVorbisCommentPacket([]string{"TITLE=Golden Hour", "ARTIST=Suzume"})

	got, err := parseVorbisCommentPacket(packet)
	require.NoError(t, err)
	assert.Equal(t, []string{"TITLE=Golden Hour", "ARTIST=Suzume"}, got)
}

func TestParseVorbisCommentPacket_RejectsWrongMagic(t *testing.T) {
	_, err := parseVorbisCommentPacket([]byte("not a vorbis packet at all"))
	assert.Error(t, err)
}

func TestOpusTagsPacket_RoundTrip(t *testing.T) {
	packet := buildOpusTagsPacket([]string{"TITLE=Golden Hour", "ALBUM=Harvest Moon"})

	got, err := parseOpusTagsPacket(packet)
	require.NoError(t, err)
	assert.Equal(t, []string{"TITLE=Golden Hour", "ALBUM=Harvest Moon"}, got)
}

func TestParseOpusTagsPacket_RejectsWrongMagic(t *testing.T) {
	_, err := parseOpusTagsPacket(buildVorbisCommentPacket(nil))
	assert.Error(t, err)
}

func TestOggChecksum_ChangesWithContent(t *testing.T) {
	a := []byte("abcdefgh")
	b := []byte("abcdefgi")
	assert.NotEqual(t, oggChecksum(a), oggChecksum(b))
}

// buildTestPage encodes a single Ogg page from raw packet bytes, used to
// construct small synthetic streams for the demux/remux tests below.
func buildTestPage(headerType byte, granule uint64, serial, seq uint32, data []byte) []byte {
	segCount := len(data) / 255
	segments := make([]byte, 0, segCount+1)
	for i := 0; i < segCount; i++ {
		segments = append(segments, 255)
	}
	segments = append(segments, byte(len(data)%255))

	page := make([]byte, 0, 27+len(segments)+len(data))
	page = append(page, []byte(oggCapturePattern)...)
	page = append(page, 0, headerType)
	var buf8 [8]byte
	binary.LittleEndian.PutUint64(buf8[:], granule)
	page = append(page, buf8[:]...)
	var buf4 [4]byte
	binary.LittleEndian.PutUint32(buf4[:], serial)
	page = append(page, buf4[:]...)
	binary.LittleEndian.PutUint32(buf4[:], seq)
	page = append(page, buf4[:]...)
	page = append(page, 0, 0, 0, 0) // checksum placeholder
	page = append(page, byte(len(segments)))
	page = append(page, segments...)
	page = append(page, data...)

	crc := oggChecksum(page)
	binary.LittleEndian.PutUint32(page[22:26], crc)
	return page
}

func TestParseOggPages_AndDemuxPackets(t *testing.T) {
	idPacket := []byte("OpusHead-fake-identification-packet")
	commentPacket := buildOpusTagsPacket([]string{"TITLE=Old"})
	audioPacket := []byte{1, 2, 3, 4, 5}

	var raw []byte
	raw = append(raw, buildTestPage(oggFlagBOS, 0, 42, 0, idPacket)...)
	raw = append(raw, buildTestPage(0, 0, 42, 1, commentPacket)...)
	raw = append(raw, buildTestPage(oggFlagEOS, 960, 42, 2, audioPacket)...)

	pages, err := parseOggPages(raw)
	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Equal(t, uint32(42), pages[0].serial)

	packets, pageOf, err := demuxPackets(pages)
	require.NoError(t, err)
	require.Len(t, packets, 3)
	assert.Equal(t, idPacket, packets[0])
	assert.Equal(t, commentPacket, packets[1])
	assert.Equal(t, audioPacket, packets[2])
	assert.Equal(t, 2, pageOf[2])
}

func TestRemuxOggPackets_ReplacesCommentPacketAndKeepsAudio(t *testing.T) {
	idPacket := []byte("OpusHead-fake-identification-packet")
	oldComment := buildOpusTagsPacket([]string{"TITLE=Old"})
	audioPacket := []byte{9, 9, 9, 9}

	var raw []byte
	raw = append(raw, buildTestPage(oggFlagBOS, 0, 7, 0, idPacket)...)
	raw = append(raw, buildTestPage(0, 0, 7, 1, oldComment)...)
	raw = append(raw, buildTestPage(oggFlagEOS, 960, 7, 2, audioPacket)...)

	pages, err := parseOggPages(raw)
	require.NoError(t, err)
	packets, pageOf, err := demuxPackets(pages)
	require.NoError(t, err)

	newComment := buildOpusTagsPacket([]string{"TITLE=New", "ALBUM=Rebuilt"})
	packets[1] = newComment

	out, err := remuxOggPackets(pages, packets, pageOf)
	require.NoError(t, err)

	outPages, err := parseOggPages(out)
	require.NoError(t, err)
	require.Len(t, outPages, 3)

	outPackets, _, err := demuxPackets(outPages)
	require.NoError(t, err)
	require.Len(t, outPackets, 3)
	assert.Equal(t, idPacket, outPackets[0])
	assert.Equal(t, newComment, outPackets[1])
	assert.Equal(t, audioPacket, outPackets[2])

	assert.Equal(t, uint32(7), outPages[0].serial)
	assert.True(t, outPages[0].headerType&oggFlagBOS != 0)
	assert.True(t, outPages[2].headerType&oggFlagEOS != 0)
	assert.Equal(t, uint64(960), outPages[2].granule)
}
