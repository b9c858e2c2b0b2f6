package fsimage

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildAndParseRoundTrip(t *testing.T) {
	b := NewBuilder()
	data := bytes.Repeat([]byte("hello-world-"), 500) // spans multiple 4KiB blocks
	inode := b.AddFile("frame0.txt", TypeFile, data)
	b.AddFile("shell", TypeFile, []byte("ELFprogram"))
	b.AddFile(".", TypeDirectory, nil)

	img, err := Parse(b.Build())
	require.NoError(t, err)
	require.Equal(t, 3, img.NumDentries())

	d, err := img.ReadDentryByName("frame0.txt")
	require.NoError(t, err)
	require.Equal(t, inode, d.Inode)
	require.Equal(t, TypeFile, d.Type)

	out := make([]byte, len(data))
	n, err := img.ReadData(d.Inode, 0, out)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.Equal(t, data, out)
}

func TestReadDataClampsToFileLength(t *testing.T) {
	b := NewBuilder()
	inode := b.AddFile("short", TypeFile, []byte("abc"))
	img, err := Parse(b.Build())
	require.NoError(t, err)

	buf := make([]byte, 100)
	n, err := img.ReadData(inode, 0, buf)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, "abc", string(buf[:n]))
}

func TestReadDataAcrossBlockBoundary(t *testing.T) {
	b := NewBuilder()
	data := make([]byte, BlockSize+10)
	for i := range data {
		data[i] = byte(i)
	}
	inode := b.AddFile("big", TypeFile, data)
	img, err := Parse(b.Build())
	require.NoError(t, err)

	buf := make([]byte, 20)
	n, err := img.ReadData(inode, uint32(BlockSize-5), buf)
	require.NoError(t, err)
	require.Equal(t, 15, n) // only 15 bytes remain after offset
	require.Equal(t, data[BlockSize-5:], buf[:n])
}

func TestReadDentryByNameNotFound(t *testing.T) {
	img, err := Parse(NewBuilder().Build())
	require.NoError(t, err)
	_, err = img.ReadDentryByName("nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestNameExactly32BytesNotNullTerminated(t *testing.T) {
	raw := make([]byte, MasterSize+DentrySize)
	raw[0] = 1 // one dentry
	name := bytes.Repeat([]byte("x"), NameMax)
	copy(raw[MasterSize:MasterSize+NameMax], name)
	img, err := Parse(raw)
	require.NoError(t, err)
	require.Equal(t, string(name), img.dentries[0].Name)
}
