package hub

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vara-lang/vara/database"
	"github.com/vara-lang/vara/initializer"
	"github.com/vara-lang/vara/lexer"
	"github.com/vara-lang/vara/object"
	"github.com/vara-lang/vara/parser"
	"github.com/vara-lang/vara/settings"
	"github.com/vara-lang/vara/text"
)

var MARGIN = 80

// A runningService is a service together with the filepath of the script
// that was run to set it up, kept so that 'hub reset' can rerun it.
type runningService struct {
	service        *initializer.Service
	scriptFilepath string
}

type Hub struct {
	services               map[string]*runningService
	currentServiceName     string
	conf                   settings.Settings
	store                  *database.Store
	peek                   bool
	in                     io.Reader
	out                    io.Writer
	anonymousServiceNumber int
	snap                   *Snap
	oldServiceName         string // Somewhere to keep the old service name while taking a snap
}

func New(conf settings.Settings, in io.Reader, out io.Writer) *Hub {
	hub := Hub{services: make(map[string]*runningService), conf: conf, in: in, out: out}
	hub.createService("", "", "")
	return &hub
}

// This takes the input from the REPL, interprets it as a hub command if it begins with 'hub';
// as an instruction to switch services if it consists only of the name of a service; as
// an expression to be passed to a service if it begins with the name of a service; and as an
// expression to be passed to the current service if none of the above hold.
func (hub *Hub) Do(line string) bool {

	// We may be talking to the hub.

	hubWords := strings.Fields(line)
	if hubWords[0] == "hub" {
		return hub.ParseHubCommand(hubWords[1:])
	}

	// Otherwise, we need to find a service to talk to.

	sv, ok := hub.services[hubWords[0]]
	if ok {
		if len(hubWords) == 1 {
			hub.currentServiceName = hubWords[0]
			hub.WriteString(text.OK + "\n")
			return false
		}
		line = line[len(hubWords[0])+1:]
	} else {
		sv, ok = hub.services[hub.currentServiceName]
	}
	if !ok {
		hub.WriteString(text.ERROR + "the hub can't find the service " +
			text.Emph(hub.currentServiceName) + "\n")
		return false
	}

	// If we do, we pass the line to the service and get back a string to output.

	if hub.peek {
		lexer.LexDump(line)
		if program, errs := parser.Parse("REPL input", line); len(errs) == 0 {
			fmt.Println("Parser output:\n\n" + program.String() + "\n")
		}
	}

	result := hub.doLine(sv, line)
	hub.WriteString(result + "\n")
	if hub.currentServiceName == "#snap" {
		hub.snap.AddInput(line)
		hub.snap.AddOutput(result)
	}
	return false
}

// A line of the REPL goes to the service's persistent context, so that a
// variable made by one line is there for the next.
func (hub *Hub) doLine(sv *runningService, line string) string {
	result, errs := sv.service.RunLine("REPL input", line)
	if len(errs) > 0 {
		return strings.TrimRight(errs.String(), "\n")
	}
	if e, isError := result.(*object.Error); isError {
		return e.Inspect(object.ViewStdOut)
	}
	return result.Inspect(hub.view(sv))
}

func (hub *Hub) view(sv *runningService) object.View {
	value, ok := sv.service.Ctx.System.Get("view")
	if !ok {
		return object.ViewStdOut
	}
	if s, isString := value.(*object.String); isString && s.Value == "vara" {
		return object.ViewVaraLiteral
	}
	return object.ViewStdOut
}

func (hub *Hub) ParseHubCommand(hubWords []string) bool { // Returns true if the command is 'quit', since it can't quit
	fieldCount := len(hubWords) // from the REPL itself.
	if fieldCount == 0 {
		hub.help()
		return false
	}
	verb := hubWords[0]
	switch verb {

	// Verbs are in alphabetical order :
	// db, edit, halt, help, list, peek, quit, replay, reset, run, set, snap, test

	case "db":
		switch fieldCount {
		case 3:
			if hubWords[1] != "SQLite" {
				hub.WriteString(text.ERROR + "only the " + text.Emph("SQLite") +
					" driver can be opened with just a filename\n")
				return false
			}
			hub.openStore("SQLite", "", "", hubWords[2], "", "")
		case 7:
			hub.openStore(hubWords[1], hubWords[2], hubWords[3], hubWords[4], hubWords[5], hubWords[6])
		default:
			hub.WriteString(text.ERROR + "the " + text.Emph("hub db") + " command takes either a driver " +
				"name and a filename, or a driver, host, port, database, username and password\n")
		}

	case "edit":
		switch {
		case fieldCount == 1:
			hub.WriteString(text.ERROR + "the " + text.Emph("hub edit") +
				" command requires a filename as a parameter\n")
		case fieldCount > 2:
			hub.WriteString(text.ERROR + "the " + text.Emph("hub edit") +
				" command takes at most one parameter\n")
		default:
			command := exec.Command("vim", hubWords[1])
			command.Stdin = os.Stdin
			command.Stdout = os.Stdout
			err := command.Run()
			if err != nil {
				hub.WriteString(fmt.Sprint(text.ERROR, err, "\n"))
			}
		}

	case "halt":
		name := hub.currentServiceName
		if fieldCount > 2 {
			hub.WriteString(text.ERROR + "the " + text.Emph("hub halt") + " command takes at most one parameter, the name of a service\n")
			return false
		}
		if fieldCount == 2 {
			if _, ok := hub.services[hubWords[1]]; !ok {
				hub.WriteString(text.ERROR + "the hub can't find the service " +
					text.Emph(hubWords[1]) + "\n")
				return false
			}
			name = hubWords[1]
		}
		if name == hub.currentServiceName {
			hub.currentServiceName = ""
		}
		delete(hub.services, name)
		hub.WriteString(text.OK + "\n")

	case "help":
		switch {
		case fieldCount == 1:
			hub.help()
		case fieldCount > 2:
			hub.WriteString(text.ERROR + "the " + text.Emph("hub help") +
				" command takes at most one parameter\n")
		default:
			if helpMessage, ok := helpStrings[hubWords[1]]; ok {
				hub.WritePretty(helpMessage)
			} else {
				hub.WriteString(text.ERROR + "the " + text.Emph("hub help") + " command doesn't accept " +
					text.Emph(hubWords[1]) + " as a parameter\n")
			}
		}

	case "list":
		switch {
		case fieldCount == 1:
			hub.WriteString("\n")
			hub.list()
		default:
			hub.WriteString(text.ERROR + "the " + text.Emph("hub list") +
				" command takes no parameters\n")
		}

	case "peek":
		switch {
		case fieldCount == 1:
			hub.peek = !hub.peek
		case fieldCount == 2:
			switch hubWords[1] {
			case "on":
				hub.peek = true
			case "off":
				hub.peek = false
			default:
				hub.WriteString(text.ERROR + "the " + text.Emph("hub peek") +
					" command only accepts the parameters " + text.Emph("on") + " or " + text.Emph("off") + "\n")
			}
		default:
			hub.WriteString(text.ERROR + "the " + text.Emph("hub peek") +
				" command takes at most one parameter, " + text.Emph("on") + " or " + text.Emph("off") + "\n")
		}

	case "quit":
		if fieldCount > 1 {
			hub.WriteString(text.ERROR + "the " + text.Emph("hub quit") + " command takes no parameters\n")
		} else {
			hub.quit()
			return true
		}

	case "replay":

		hub.oldServiceName = hub.currentServiceName

		switch {
		case fieldCount == 2:
			hub.playTest(hubWords[1], false)
		case fieldCount == 3:
			if hubWords[2] != "diff" {
				hub.WriteString(text.ERROR + "the word " + text.Emph(hubWords[2]) +
					" makes no sense there\n")
			} else {
				hub.playTest(hubWords[1], true)
			}
		default:
			hub.WriteString(text.ERROR + "the " + text.Emph("hub replay") +
				" command takes the filepath of a test as a parameter, optionally" +
				" followed by " + text.Emph("diff") + "\n")
		}

		hub.currentServiceName = hub.oldServiceName

		delete(hub.services, "#test")

	case "reset":
		if fieldCount > 2 {
			hub.WriteString(text.ERROR + "the " + text.Emph("hub reset") + " command takes at most one parameter, the name of a service\n")
			return false
		}
		name := hub.currentServiceName
		if fieldCount == 2 {
			name = hubWords[1]
		}
		sv, ok := hub.services[name]
		if !ok {
			hub.WriteString(text.ERROR + "the hub can't find the service " +
				text.Emph(name) + "\n")
			return false
		}
		hub.WriteString("Restarting script " + text.Emph(sv.scriptFilepath) +
			" as service " + text.Emph(name) + ".\n")
		hub.Start(name, sv.scriptFilepath)

	case "run":
		switch fieldCount {
		case 1:
			hub.currentServiceName = ""
		case 2:
			hub.WriteString("Starting script " + text.Emph(hubWords[1]) +
				" as service " + text.Emph("#"+strconv.Itoa(hub.anonymousServiceNumber)) + ".\n")
			hub.StartAnonymous(hubWords[1])
		case 4:
			if hubWords[2] != "as" {
				hub.WriteString(text.ERROR + "the word " + text.Emph(hubWords[2]) +
					" doesn't make any sense there\n")
				return false
			}
			hub.WriteString("Starting script " + text.Emph(hubWords[1]) + " as service " + text.Emph(hubWords[3]) + ".\n")
			hub.Start(hubWords[3], hubWords[1])
		default:
			hub.WriteString(text.ERROR + "the " + text.Emph("hub run") + " command takes a script filepath, " +
				"optionally followed by " + text.Emph("as <service name>") + "\n")
		}

	case "set":
		if fieldCount != 3 {
			hub.WriteString(text.ERROR + "the " + text.Emph("hub set") +
				" command takes the name of a system variable and a value\n")
			return false
		}
		sv, ok := hub.services[hub.currentServiceName]
		if !ok {
			hub.WriteString(text.ERROR + "the hub can't find the service " +
				text.Emph(hub.currentServiceName) + "\n")
			return false
		}
		if err := sv.service.SetSysVar(hubWords[1], parseSetting(hubWords[2])); err != nil {
			hub.WriteString(text.ERROR + err.Message + "\n")
			return false
		}
		hub.WriteString(text.OK + "\n")

	case "snap":
		switch fieldCount {
		case 1:
			hub.WriteString(text.ERROR + "the " + text.Emph("hub snap") +
				" command needs some parameters\n")
			return false
		case 2:
			fieldOne := hubWords[1]
			if fieldOne == "good" || fieldOne == "bad" || fieldOne == "record" || fieldOne == "discard" {
				if hub.currentServiceName != "#snap" {
					hub.WriteString(text.ERROR + "you aren't taking a snap\n")
					return false
				}
			}
			switch fieldOne {
			case "good":
				hub.WriteString(hub.snap.Save(GOOD) + "\n")
			case "bad":
				hub.WriteString(hub.snap.Save(BAD) + "\n")
			case "record":
				hub.WriteString(hub.snap.Save(RECORD) + "\n")
			case "discard":
				hub.WriteString(text.OK + "\n")
			default:
				scriptFilepath := fieldOne
				testFilename := getUnusedTestFilename(scriptFilepath) // If no filename is given, we just generate one.
				hub.startSnap(scriptFilepath, testFilename)
			}
			if fieldOne == "good" || fieldOne == "bad" || fieldOne == "record" || fieldOne == "discard" {
				hub.currentServiceName = hub.oldServiceName
				delete(hub.services, "#snap")
			}
		case 4:
			if hubWords[2] != "as" {
				hub.WriteString(text.ERROR + "the word " + text.Emph(hubWords[2]) +
					" doesn't make any sense there\n")
				return false
			}
			hub.startSnap(hubWords[1], hubWords[3])
		default:
			hub.WriteString(text.ERROR + "the " + text.Emph("hub snap") + " command takes a script filepath, " +
				"optionally followed by " + text.Emph("as <test filename>") + "\n")
		}

	case "test":
		switch fieldCount {
		case 2:
			hub.TestScript(hubWords[1])
		default:
			hub.WriteString(text.ERROR + "the " + text.Emph("hub test") +
				" command takes the filepath of a script as its one parameter\n")
		}

	default:
		hub.WriteString(text.ERROR + "the hub doesn't recognize the command " +
			text.Emph(verb) + "\n")
	}
	return false
}

// A value given to 'hub set' arrives as a string and has to be turned into
// the sort of object the sysvar's validator wants.
func parseSetting(s string) object.Object {
	if s == "true" || s == "false" {
		return object.MakeBool(s == "true")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return &object.Integer{Value: n}
	}
	return &object.String{Value: strings.Trim(s, "\"")}
}

func (hub *Hub) openStore(driver, host, port, db, user, password string) {
	store, err := database.Open(driver, host, port, db, user, password, dbTok)
	if err != nil {
		hub.WriteString(text.ERROR + err.Message + "\n")
		return
	}
	hub.store = store
	for _, sv := range hub.services {
		if regErr := sv.service.AttachStore(store); regErr != nil {
			hub.WriteString(text.ERROR + regErr.Message + "\n")
			return
		}
	}
	hub.WriteString(text.OK + "\n")
}

func (hub *Hub) startSnap(scriptFilepath, testFilename string) {
	hub.snap = NewSnap(scriptFilepath, testFilename)
	hub.oldServiceName = hub.currentServiceName
	hub.Start("#snap", scriptFilepath)
	if sv, ok := hub.services["#snap"]; ok {
		sv.service.SetSysVar("view", &object.String{Value: "vara"})
	}
	hub.WriteString("Serialization is ON.\n")
}

func getUnusedTestFilename(scriptFilepath string) string {
	directoryName := text.FlattenedFilename(scriptFilepath)
	name := text.FlattenedFilename(scriptFilepath) + "_"

	tryNumber := 1
	tryName := ""

	for ; ; tryNumber++ {
		tryName = name + strconv.Itoa(tryNumber)
		_, err := os.Stat("tst/" + directoryName + "/" + tryName)
		if os.IsNotExist(err) {
			break
		}
	}
	return tryName
}

func (hub *Hub) quit() {
	hub.WriteString(text.OK + "\n" + text.Logo() + "Thank you for using Vara. Have a nice day!\n\n")
}

func (hub *Hub) help() {
	hub.WriteString("\n")
	hub.WriteString("Hub commands are:\n")
	hub.WriteString("\n")
	hub.WriteString(text.BULLET + "db <driver> <host> <port> <database> <username> <password>\n")
	hub.WriteString(text.BULLET + "edit <filename>\n")
	hub.WriteString(text.BULLET + "halt <service name>\n")
	hub.WriteString(text.BULLET + "help <topic>\n")
	hub.WriteString(text.BULLET + "list\n")
	hub.WriteString(text.BULLET + "peek <on/off>\n")
	hub.WriteString(text.BULLET + "quit\n")
	hub.WriteString(text.BULLET + "replay <filename>\n")
	hub.WriteString(text.BULLET + "reset <service name>\n")
	hub.WriteString(text.BULLET + "run <filename> as <service name>\n")
	hub.WriteString(text.BULLET + "set <system variable> <value>\n")
	hub.WriteString(text.BULLET + "snap <filename> as <test filename>\n")
	hub.WriteString(text.BULLET + "test <filename>\n")
	hub.WriteString("\n")
}

func (hub *Hub) WritePretty(s string) {
	for i := 0; i < len(s); {
		e := i + MARGIN
		j := 0
		if e > len(s) {
			j = len(s) - i
		} else {
			j = strings.LastIndexAny(s[i:e], " \n")
		}
		if j == -1 {
			j = MARGIN
		}
		hub.WriteString(s[i:i+j] + "\n")
		i = i + j + 1
	}
}

func (hub *Hub) WriteString(s string) {
	io.WriteString(hub.out, s)
}

var helpStrings = map[string]string{
	"db": text.Emph("hub db") + " opens a database and makes it available to every service as the " +
		text.Emph("db") + " namespace. For SQLite you need only give the driver name and a filename; " +
		"the other drivers want a host, port, database, username and password.",
	"edit": text.Emph("hub edit") + " followed by a filename will open the file in vim.",
	"halt": text.Emph("hub halt") + " followed by the name of a service will halt the service. " +
		" If no service name is given, the hub will halt the current service.",
	"help": text.Emph("hub help") + " followed by the name of a topic will supply you with " +
		"information on that topic.",
	"list": text.Emph("hub list") + " will list all services currently running on the hub.",
	"peek": text.Emph("hub peek") + " followed by " + text.Emph("on") + " or " + text.Emph("off") +
		" will allow you to see what the lexer and parser are doing. " + text.Emph("peek") +
		" without a parameter toggles between on and off.",
	"quit": text.Emph("hub quit") + " closes everything down.",
	"replay": text.Emph("hub replay") + " followed by the filepath of a test will rerun the test, " +
		"showing the interaction. Adding " + text.Emph("diff") + " shows only where the replay " +
		"differs from the recording.",
	"reset": text.Emph("hub reset") + " followed by the name of a service will rerun the script " +
		"from scratch, throwing away the service's private and public scopes. If no service " +
		"name is given the hub will reset the current service.",
	"run": text.Emph("hub run") + " without parameters will start a REPL with no script. With one parameter (a " +
		"valid filename) it will run the script as an anonymous service. By adding " + text.Emph("as <name>") +
		" you can name the service.",
	"set": text.Emph("hub set") + " followed by the name of a system variable and a value will set " +
		"the variable on the current service, e.g. " + text.Emph("hub set typecheck false") + ".",
	"snap": text.Emph("hub snap") + " followed by a script filepath starts recording a test: " +
		"everything you type, and everything the service says back, goes into the test file when " +
		"you finish with " + text.Emph("hub snap good") + ", " + text.Emph("hub snap bad") + " or " +
		text.Emph("hub snap record") + ".",
	"test": text.Emph("hub test") + " followed by a script filepath runs all the tests recorded " +
		"for that script.",
}

func (hub *Hub) StartAnonymous(scriptFilepath string) {
	hub.Start("#"+strconv.Itoa(hub.anonymousServiceNumber), scriptFilepath)
	hub.anonymousServiceNumber = hub.anonymousServiceNumber + 1
}

func (hub *Hub) Start(name, scriptFilepath string) {
	code := ""
	if scriptFilepath != "" {
		dat, err := os.ReadFile(scriptFilepath)
		if err != nil {
			hub.WriteString("\n" + text.ERROR + err.Error() + "\n")
			return
		}
		code = strings.TrimRight(string(dat), "\n") + "\n"
	}
	hub.currentServiceName = name
	hub.createService(name, scriptFilepath, code)
}

// The script is run in the service's persistent context rather than a
// throwaway child, so that the functions and public variables it makes are
// there for the REPL.
func (hub *Hub) createService(name, scriptFilepath, code string) {
	service, err := initializer.NewService(hub.conf, hub.out, nil)
	if err != nil {
		hub.WriteString(text.ERROR + err.Message + "\n")
		hub.currentServiceName = ""
		return
	}
	if hub.store != nil {
		if regErr := service.AttachStore(hub.store); regErr != nil {
			hub.WriteString(text.ERROR + regErr.Message + "\n")
			hub.currentServiceName = ""
			return
		}
	}
	if code != "" {
		result, errs := service.RunLine(scriptFilepath, code)
		if len(errs) > 0 {
			hub.WriteString(errs.String())
			hub.currentServiceName = ""
			return
		}
		if e, isError := result.(*object.Error); isError {
			hub.WriteString(e.Inspect(object.ViewStdOut) + "\n")
			hub.currentServiceName = ""
			return
		}
	}
	hub.services[name] = &runningService{service: service, scriptFilepath: scriptFilepath}
}

func (hub *Hub) GetCurrentServiceName() string {
	return hub.currentServiceName
}

func (hub *Hub) list() {
	if len(hub.services) == 1 {
		return // That would be the empty service, the REPL
	}
	hub.WriteString("The hub is running the following services:\n\n")
	for k := range hub.services {
		if k == "" {
			continue
		}
		hub.WriteString("service " + text.Emph(k) + " running script " +
			text.Emph(filepath.Base(hub.services[k].scriptFilepath)) + "\n")
	}
	hub.WriteString("\n")
}

func (hub *Hub) TestScript(scriptFilepath string) {

	directoryName := "tst/" + text.FlattenedFilename(scriptFilepath)

	if _, err := os.Stat(directoryName); os.IsNotExist(err) {
		hub.WriteString(text.ERROR + strings.TrimSpace(err.Error()) + "\n")
		return
	}
	hub.oldServiceName = hub.currentServiceName
	files, _ := os.ReadDir(directoryName)
	for _, testFileInfo := range files {
		testFilepath := directoryName + "/" + testFileInfo.Name()
		f, err := os.Open(testFilepath)
		if err != nil {
			hub.WriteString(text.ERROR + strings.TrimSpace(err.Error()) + "\n")
			continue
		}

		scanner := bufio.NewScanner(f)
		scanner.Scan()
		testType := strings.Split(scanner.Text(), ": ")[1]
		if testType == RECORD {
			f.Close()
			continue
		}
		scanner.Scan()
		hub.Start("#test", scriptFilepath)
		sv, ok := hub.services["#test"]
		if !ok {
			f.Close()
			continue
		}
		hub.WriteString("Running test " + text.Emph(testFilepath) + ".\n")
		sv.service.SetSysVar("view", &object.String{Value: "vara"})
		scanner.Scan() // eats the newline
		executionMatchesTest := true
		for scanner.Scan() {
			lineIn := scanner.Text()[3:]
			scanner.Scan()
			lineOut := scanner.Text()
			result := hub.doLine(sv, lineIn)
			executionMatchesTest = executionMatchesTest && (result == lineOut)
		}
		if executionMatchesTest && testType == BAD {
			hub.WriteString(text.ERROR + "bad behavior reproduced by test\n")
			f.Close()
			hub.playTest(testFilepath, false)
			continue
		}
		if !executionMatchesTest && testType == GOOD {
			hub.WriteString(text.ERROR + "good behavior not reproduced by test\n")
			f.Close()
			hub.playTest(testFilepath, true)
			continue
		}
		hub.WriteString("Test passed!\n")
		f.Close()
	}
	delete(hub.services, "#test")
	hub.currentServiceName = hub.oldServiceName
}

func (hub *Hub) playTest(testFilepath string, diffOn bool) {
	f, err := os.Open(testFilepath)
	if err != nil {
		hub.WriteString(text.ERROR + strings.TrimSpace(err.Error()) + "\n")
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Scan() // test type doesn't matter
	scanner.Scan()
	scriptFilepath := strings.Split(scanner.Text(), ": ")[1]
	hub.Start("#test", scriptFilepath)
	sv, ok := hub.services["#test"]
	if !ok {
		return
	}
	sv.service.SetSysVar("view", &object.String{Value: "vara"})
	scanner.Scan() // eats the newline
	for scanner.Scan() {
		lineIn := scanner.Text()[3:]
		scanner.Scan()
		lineOut := scanner.Text()
		result := hub.doLine(sv, lineIn)
		hub.WriteString("#test → " + lineIn + "\n")
		if result == lineOut || !diffOn {
			hub.WriteString(result + "\n")
		} else {
			hub.WriteString("was: " + lineOut + "\ngot: " + result + "\n")
		}
	}
}
