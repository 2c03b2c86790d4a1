package domain

import (
	"fmt"
	"sort"
	"strings"
)

// ArtifactKind identifica cada pieza generada de un item
type ArtifactKind string

const (
	KindArticle          ArtifactKind = "article"
	KindImages           ArtifactKind = "images"
	KindDirectoryArticle ArtifactKind = "directory_article"
	KindPodcast          ArtifactKind = "podcast"
	KindShortVideo       ArtifactKind = "short_video"
	KindClientSocial     ArtifactKind = "client_social"
	KindDirectorySocial  ArtifactKind = "directory_social"
	// KindLongVideo is filled by the chunked upload, never by a generator.
	KindLongVideo ArtifactKind = "long_video"
)

// GeneratedKinds lists every kind a generator can produce.
var GeneratedKinds = []ArtifactKind{
	KindArticle, KindImages, KindDirectoryArticle, KindPodcast, KindShortVideo, KindClientSocial, KindDirectorySocial,
}

// Channel es un destino de publicación externo
type Channel string

const (
	ChannelArticle          Channel = "article"
	ChannelDirectoryArticle Channel = "directory_article"
	ChannelPodcast          Channel = "podcast"
	ChannelShortVideo       Channel = "short_video"
	ChannelClientSocial     Channel = "client_social"
	ChannelDirectorySocial  Channel = "directory_social"
)

var AllChannels = []Channel{
	ChannelArticle, ChannelDirectoryArticle, ChannelPodcast, ChannelShortVideo, ChannelClientSocial, ChannelDirectorySocial,
}

// Brand distingue las dos identidades que publican a partir del mismo tema
type Brand string

const (
	BrandClient    Brand = "client"
	BrandDirectory Brand = "directory"
)

// SocialKind returns the artifact kind holding the brand's social posts.
func (b Brand) SocialKind() ArtifactKind {
	if b == BrandDirectory {
		return KindDirectorySocial
	}
	return KindClientSocial
}

// Set is a typed set of string enums.
type Set[T ~string] map[T]struct{}

func NewSet[T ~string](values ...T) Set[T] {
	s := make(Set[T], len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

func (s Set[T]) Has(v T) bool {
	_, ok := s[v]
	return ok
}

func (s Set[T]) Add(v T) {
	s[v] = struct{}{}
}

func (s Set[T]) Len() int {
	return len(s)
}

// Sorted returns the members in lexical order.
func (s Set[T]) Sorted() []T {
	out := make([]T, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type KindSet = Set[ArtifactKind]
type ChannelSet = Set[Channel]

// ParseKinds converts names into a KindSet, rejecting unknown or non-generated kinds.
func ParseKinds(names []string) (KindSet, error) {
	valid := NewSet(GeneratedKinds...)
	out := make(KindSet, len(names))
	for _, n := range names {
		k := ArtifactKind(strings.TrimSpace(n))
		if !valid.Has(k) {
			return nil, fmt.Errorf("unknown artifact kind: %q", n)
		}
		out.Add(k)
	}
	return out, nil
}

// ParseChannels converts names into a ChannelSet, rejecting unknown channels.
func ParseChannels(names []string) (ChannelSet, error) {
	valid := NewSet(AllChannels...)
	out := make(ChannelSet, len(names))
	for _, n := range names {
		c := Channel(strings.TrimSpace(n))
		if !valid.Has(c) {
			return nil, fmt.Errorf("unknown channel: %q", n)
		}
		out.Add(c)
	}
	return out, nil
}
