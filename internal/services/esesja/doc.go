// Package esesja scrapes the esesja.tv session listing and session pages.
// It is the only package that understands the site's HTML; everything
// downstream works with catalog items and stream URLs.
package esesja
