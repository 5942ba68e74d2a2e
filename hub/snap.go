package hub

import (
	"fmt"
	"os"
	"strings"

	"github.com/vara-lang/vara/text"
	"github.com/vara-lang/vara/token"
)

var dbTok = token.Token{Source: "hub"}

type ioPair struct {
	input  string
	output string
}

// A Snap records a REPL interaction with a service so it can be saved as a
// test and replayed against the script later.
type Snap struct {
	testFilename   string
	scriptFilepath string
	ioList         []ioPair
}

const (
	BAD    = "bad"
	GOOD   = "good"
	RECORD = "record"
)

func NewSnap(scriptFilepath, testFilename string) *Snap {
	sn := Snap{scriptFilepath: scriptFilepath, testFilename: testFilename, ioList: []ioPair{}}
	return &sn
}

func (sn *Snap) AddInput(s string) {
	sn.ioList = append(sn.ioList, ioPair{input: s})
}

func (sn *Snap) AddOutput(s string) {
	sn.ioList[len(sn.ioList)-1].output = s
}

func (sn *Snap) Save(st string) string {
	snapOutput := fmt.Sprintf("snap: %v\nscript: %v\n", st, sn.scriptFilepath)
	for _, v := range sn.ioList {
		snapOutput = snapOutput + "\n" + "-> " + v.input + "\n" + v.output
	}

	directoryName := "tst/" + text.FlattenedFilename(sn.scriptFilepath)
	err := os.MkdirAll(directoryName, 0777)
	if err != nil {
		return text.ERROR + strings.TrimSpace(err.Error())
	}
	testFilepath := directoryName + "/" + sn.testFilename
	f, err := os.Create(testFilepath)
	if err != nil {
		return text.ERROR + strings.TrimSpace(err.Error())
	}
	defer f.Close()

	f.WriteString(snapOutput)

	return "Created test as file " + text.Emph(testFilepath) + "."
}
