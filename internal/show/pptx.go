package show

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ArsuMinSo/presentator/internal/util"
)

// pptxSlideDuration is the per-slide duration written for imported decks.
// Imports come from timed presentations, so the value is in milliseconds
// and the viewer treats large durations as such.
const pptxSlideDuration = 5000

var slideFileRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// ImportPPTX extracts slide text and images from a .pptx archive and saves
// the result as an editor deck named after the upload. Embedded pictures are
// copied into a sibling <name>_images directory and referenced from the
// slide markup. Returns the created slideshow's file path.
func (s *Store) ImportPPTX(archivePath, uploadName string) (string, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", fmt.Errorf("open pptx: %w", err)
	}
	defer zr.Close()

	name := strings.TrimSuffix(filepath.Base(uploadName), filepath.Ext(uploadName))
	name = util.SterileName(name)
	if name == "" {
		name = "Imported_Presentation"
	}

	files := make(map[string]*zip.File, len(zr.File))
	var slideNums []int
	for _, f := range zr.File {
		files[f.Name] = f
		if m := slideFileRe.FindStringSubmatch(f.Name); m != nil {
			n, _ := strconv.Atoi(m[1])
			slideNums = append(slideNums, n)
		}
	}
	if len(slideNums) == 0 {
		return "", fmt.Errorf("pptx contains no slides")
	}
	sort.Ints(slideNums)

	imagesDir := filepath.Join(s.root, name+"_images")

	deck := EditorDeck{Name: strings.ReplaceAll(name, "_", " ")}
	for _, n := range slideNums {
		slideFile := files[fmt.Sprintf("ppt/slides/slide%d.xml", n)]
		paras, embeds, err := parseSlideXML(slideFile)
		if err != nil {
			return "", fmt.Errorf("parse slide %d: %w", n, err)
		}

		rels, err := parseSlideRels(files, n)
		if err != nil {
			return "", fmt.Errorf("parse slide %d rels: %w", n, err)
		}

		var b strings.Builder
		for i, p := range paras {
			if i == 0 {
				b.WriteString("<h1>" + html.EscapeString(p) + "</h1>")
			} else {
				b.WriteString("<p>" + html.EscapeString(p) + "</p>")
			}
		}
		for _, rid := range embeds {
			target, ok := rels[rid]
			if !ok {
				continue
			}
			imgName, err := extractMedia(files, target, imagesDir)
			if err != nil {
				log.Warnf("slide %d image %s: %v", n, target, err)
				continue
			}
			fmt.Fprintf(&b, `<img src="/slideshows/%s_images/%s" alt="">`, name, imgName)
		}

		deck.Slides = append(deck.Slides, EditorSlide{
			HTML:     b.String(),
			Duration: pptxSlideDuration,
			BgColor:  "#ffffff",
		})
	}

	return s.SaveEditor(deck, name+"_editor.json")
}

// parseSlideXML pulls the text runs and picture relationship ids out of one
// slide document. Runs are grouped per paragraph (a:p); empty paragraphs are
// dropped.
func parseSlideXML(f *zip.File) (paras []string, embeds []string, err error) {
	rc, err := f.Open()
	if err != nil {
		return nil, nil, err
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	var (
		para     strings.Builder
		inPara   bool
		inText   bool
		paraOpen int
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inPara = true
				paraOpen++
				para.Reset()
			case "t":
				inText = inPara
			case "blip":
				for _, a := range t.Attr {
					if a.Name.Local == "embed" && a.Value != "" {
						embeds = append(embeds, a.Value)
					}
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				if paraOpen > 0 {
					paraOpen--
				}
				if paraOpen == 0 {
					inPara = false
					if text := strings.TrimSpace(para.String()); text != "" {
						paras = append(paras, text)
					}
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}
	return paras, embeds, nil
}

type relationships struct {
	Rels []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

// parseSlideRels maps relationship ids to archive paths for one slide.
// Targets are relative to ppt/slides/.
func parseSlideRels(files map[string]*zip.File, slideNum int) (map[string]string, error) {
	relsName := fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", slideNum)
	f, ok := files[relsName]
	if !ok {
		return map[string]string{}, nil
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var rels relationships
	if err := xml.NewDecoder(rc).Decode(&rels); err != nil {
		return nil, err
	}

	out := make(map[string]string, len(rels.Rels))
	for _, r := range rels.Rels {
		out[r.ID] = path.Clean(path.Join("ppt/slides", r.Target))
	}
	return out, nil
}

// extractMedia copies one archive member into the images directory and
// returns its base name. Existing files are reused.
func extractMedia(files map[string]*zip.File, target, imagesDir string) (string, error) {
	f, ok := files[target]
	if !ok {
		return "", fmt.Errorf("media %s not in archive", target)
	}
	if err := os.MkdirAll(imagesDir, 0o755); err != nil {
		return "", err
	}

	imgName := path.Base(target)
	dst := filepath.Join(imagesDir, imgName)
	if _, err := os.Stat(dst); err == nil {
		return imgName, nil
	}

	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		os.Remove(dst)
		return "", err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return "", err
	}
	return imgName, nil
}
