package sqf

import (
	"fmt"
	"sort"
	"strings"
)

// Variant is one typed overload of a builtin command. Left is only
// meaningful for binary variants, Right for unary and binary ones.
type Variant struct {
	Left    Type
	Right   Type
	Returns Type
	Doc     string
}

// Command is a builtin SQF command with every arity it supports.
type Command struct {
	Name    string
	Nullary *Variant
	Unary   []Variant
	Binary  []Variant
}

var commands = make(map[string]*Command)

func command(name string) *Command {
	k := Key(name)
	c, ok := commands[k]
	if !ok {
		c = &Command{Name: name}
		commands[k] = c
	}
	return c
}

func nullary(name string, ret Type, doc string) {
	command(name).Nullary = &Variant{Returns: ret, Doc: doc}
}

func unary(name string, right, ret Type, doc string) {
	c := command(name)
	c.Unary = append(c.Unary, Variant{Right: right, Returns: ret, Doc: doc})
}

func binary(name string, left, right, ret Type, doc string) {
	c := command(name)
	c.Binary = append(c.Binary, Variant{Left: left, Right: right, Returns: ret, Doc: doc})
}

// LookupCommand finds a builtin by name, case-insensitively.
func LookupCommand(name string) (*Command, bool) {
	c, ok := commands[Key(name)]
	return c, ok
}

// IsNullary reports whether name is a builtin nullary command.
func IsNullary(name string) bool {
	c, ok := LookupCommand(name)
	return ok && c.Nullary != nil
}

// IsUnary reports whether name is a builtin unary command.
func IsUnary(name string) bool {
	c, ok := LookupCommand(name)
	return ok && len(c.Unary) > 0
}

// IsBinary reports whether name is a builtin binary command.
func IsBinary(name string) bool {
	c, ok := LookupCommand(name)
	return ok && len(c.Binary) > 0
}

// Commands returns every named builtin (operators excluded), sorted by
// lower-cased name.
func Commands() []*Command {
	out := make([]*Command, 0, len(commands))
	for k, c := range commands {
		if isIdentStart(k[0]) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return Key(out[i].Name) < Key(out[j].Name) })
	return out
}

// Doc renders every form of the command, nullary first, as markdown
// bullets.
func (c *Command) Doc() string {
	var parts []string
	for _, d := range []string{c.NullaryDoc(), c.UnaryDoc(), c.BinaryDoc()} {
		if d != "" {
			parts = append(parts, d)
		}
	}
	return strings.Join(parts, "\n")
}

// NullaryDoc renders the nullary form as a markdown bullet.
func (c *Command) NullaryDoc() string {
	if c.Nullary == nil {
		return ""
	}
	return fmt.Sprintf("* `%s`: %s", c.Nullary.Returns, c.Nullary.Doc)
}

// UnaryDoc renders every unary variant as markdown bullets.
func (c *Command) UnaryDoc() string {
	lines := make([]string, len(c.Unary))
	for i, v := range c.Unary {
		lines[i] = fmt.Sprintf("* `%s %s -> %s`: %s", c.Name, v.Right, v.Returns, v.Doc)
	}
	return strings.Join(lines, "\n")
}

// BinaryDoc renders every binary variant as markdown bullets.
func (c *Command) BinaryDoc() string {
	lines := make([]string, len(c.Binary))
	for i, v := range c.Binary {
		lines[i] = fmt.Sprintf("* `%s %s %s -> %s`: %s", v.Left, c.Name, v.Right, v.Returns, v.Doc)
	}
	return strings.Join(lines, "\n")
}

// unaryResult picks the return type of a unary application. ok is false when
// the argument type is known and no variant accepts it.
func (c *Command) unaryResult(right Type) (Type, bool) {
	var matched []Variant
	for _, v := range c.Unary {
		if accepts(v.Right, right) {
			matched = append(matched, v)
		}
	}
	return pickReturn(matched)
}

func (c *Command) binaryResult(left, right Type) (Type, bool) {
	var matched []Variant
	for _, v := range c.Binary {
		if accepts(v.Left, left) && accepts(v.Right, right) {
			matched = append(matched, v)
		}
	}
	return pickReturn(matched)
}

func pickReturn(matched []Variant) (Type, bool) {
	if len(matched) == 0 {
		return TypeUnknown, false
	}
	ret := matched[0].Returns
	for _, v := range matched[1:] {
		if v.Returns != ret {
			return TypeAnything, true
		}
	}
	return ret, true
}

// binaryLevel returns the precedence of a binary operator, higher binds
// tighter. Named commands without a special level sit at 4.
func binaryLevel(name string) int {
	switch Key(name) {
	case "||", "or":
		return 1
	case "&&", "and":
		return 2
	case "==", "!=", ">", "<", ">=", "<=":
		return 3
	case "else":
		return 5
	case "+", "-", "max", "min":
		return 6
	case "*", "/", "%", "mod", "atan2", ">>":
		return 7
	case "^":
		return 8
	case "#":
		return 10
	}
	return 4
}

func init() {
	// constants and environment
	nullary("true", TypeBoolean, "Boolean true.")
	nullary("false", TypeBoolean, "Boolean false.")
	nullary("nil", TypeAnything, "Undefined value.")
	nullary("pi", TypeNumber, "The constant pi.")
	nullary("player", TypeObject, "The player's unit.")
	nullary("objNull", TypeObject, "A non-existing object.")
	nullary("grpNull", TypeGroup, "A non-existing group.")
	nullary("controlNull", TypeControl, "A non-existing control.")
	nullary("displayNull", TypeDisplay, "A non-existing display.")
	nullary("scriptNull", TypeScript, "A non-existing script handle.")
	nullary("configNull", TypeConfig, "A non-existing config entry.")
	nullary("time", TypeNumber, "Seconds elapsed since the mission started.")
	nullary("serverTime", TypeNumber, "Server time synchronized to clients.")
	nullary("diag_tickTime", TypeNumber, "Real time in seconds since game start.")
	nullary("missionNamespace", TypeNamespace, "The mission namespace.")
	nullary("uiNamespace", TypeNamespace, "The UI namespace.")
	nullary("profileNamespace", TypeNamespace, "The profile namespace.")
	nullary("parsingNamespace", TypeNamespace, "The parsing namespace.")
	nullary("west", TypeSide, "The BLUFOR side.")
	nullary("east", TypeSide, "The OPFOR side.")
	nullary("independent", TypeSide, "The independent side.")
	nullary("civilian", TypeSide, "The civilian side.")
	nullary("sideLogic", TypeSide, "The logic side.")
	nullary("configFile", TypeConfig, "Root of the game config.")
	nullary("missionConfigFile", TypeConfig, "Root of the mission config.")
	nullary("isServer", TypeBoolean, "Whether the machine is the server.")
	nullary("isDedicated", TypeBoolean, "Whether the machine is a dedicated server.")
	nullary("hasInterface", TypeBoolean, "Whether the machine has a user interface.")
	nullary("isMultiplayer", TypeBoolean, "Whether the game is a multiplayer session.")
	nullary("allUnits", TypeArray, "All units in the mission.")
	nullary("allPlayers", TypeArray, "All connected players.")
	nullary("allGroups", TypeArray, "All groups in the mission.")
	nullary("createHashMap", TypeHashMap, "Creates an empty HashMap.")

	// operators
	binary("+", TypeNumber, TypeNumber, TypeNumber, "Adds two numbers.")
	binary("+", TypeString, TypeString, TypeString, "Concatenates two strings.")
	binary("+", TypeArray, TypeArray, TypeArray, "Concatenates two arrays.")
	unary("+", TypeNumber, TypeNumber, "Returns the number unchanged.")
	unary("+", TypeArray, TypeArray, "Returns a shallow copy of the array.")
	binary("-", TypeNumber, TypeNumber, TypeNumber, "Subtracts two numbers.")
	binary("-", TypeArray, TypeArray, TypeArray, "Removes the elements of the right array from the left.")
	unary("-", TypeNumber, TypeNumber, "Negates a number.")
	binary("*", TypeNumber, TypeNumber, TypeNumber, "Multiplies two numbers.")
	binary("/", TypeNumber, TypeNumber, TypeNumber, "Divides two numbers.")
	binary("/", TypeConfig, TypeString, TypeConfig, "Returns a config subentry.")
	binary("%", TypeNumber, TypeNumber, TypeNumber, "Remainder of a division.")
	binary("^", TypeNumber, TypeNumber, TypeNumber, "Raises a number to a power.")
	binary(">>", TypeConfig, TypeString, TypeConfig, "Returns a config subentry.")
	binary("#", TypeArray, TypeNumber, TypeAnything, "Selects an element of an array.")
	binary("==", TypeAnything, TypeAnything, TypeBoolean, "Checks two values for equality.")
	binary("!=", TypeAnything, TypeAnything, TypeBoolean, "Checks two values for inequality.")
	binary(">", TypeNumber, TypeNumber, TypeBoolean, "Greater than.")
	binary("<", TypeNumber, TypeNumber, TypeBoolean, "Less than.")
	binary(">=", TypeNumber, TypeNumber, TypeBoolean, "Greater than or equal.")
	binary("<=", TypeNumber, TypeNumber, TypeBoolean, "Less than or equal.")
	binary("&&", TypeBoolean, TypeBoolean, TypeBoolean, "Logical and.")
	binary("&&", TypeBoolean, TypeCode, TypeBoolean, "Lazy logical and.")
	binary("||", TypeBoolean, TypeBoolean, TypeBoolean, "Logical or.")
	binary("||", TypeBoolean, TypeCode, TypeBoolean, "Lazy logical or.")
	unary("!", TypeBoolean, TypeBoolean, "Logical negation.")
	binary(":", TypeAnything, TypeCode, TypeNothing, "Body of a switch case.")

	// logic
	binary("and", TypeBoolean, TypeBoolean, TypeBoolean, "Logical and.")
	binary("and", TypeBoolean, TypeCode, TypeBoolean, "Lazy logical and.")
	binary("or", TypeBoolean, TypeBoolean, TypeBoolean, "Logical or.")
	binary("or", TypeBoolean, TypeCode, TypeBoolean, "Lazy logical or.")
	unary("not", TypeBoolean, TypeBoolean, "Logical negation.")
	binary("mod", TypeNumber, TypeNumber, TypeNumber, "Remainder of a division.")
	binary("max", TypeNumber, TypeNumber, TypeNumber, "The greater of two numbers.")
	binary("min", TypeNumber, TypeNumber, TypeNumber, "The smaller of two numbers.")
	binary("atan2", TypeNumber, TypeNumber, TypeNumber, "Arc tangent of x/y in degrees.")
	binary("isEqualTo", TypeAnything, TypeAnything, TypeBoolean, "Strict, case-sensitive equality.")
	binary("in", TypeAnything, TypeArray, TypeBoolean, "Whether the value is an element of the array.")
	binary("in", TypeString, TypeString, TypeBoolean, "Whether the string is a substring.")

	// math
	unary("abs", TypeNumber, TypeNumber, "Absolute value.")
	unary("floor", TypeNumber, TypeNumber, "Rounds down.")
	unary("ceil", TypeNumber, TypeNumber, "Rounds up.")
	unary("round", TypeNumber, TypeNumber, "Rounds to the nearest integer.")
	unary("sqrt", TypeNumber, TypeNumber, "Square root.")
	unary("random", TypeNumber, TypeNumber, "Random real value from 0 to x.")
	unary("parseNumber", TypeString, TypeNumber, "Parses a string as a number.")

	// control flow
	unary("if", TypeBoolean, TypeIf, "Starts an if construct.")
	binary("then", TypeIf, TypeCode, TypeAnything, "Runs the code when the condition holds.")
	binary("then", TypeIf, TypeArray, TypeAnything, "Runs the first or second code of the array.")
	binary("else", TypeCode, TypeCode, TypeArray, "Pairs the then and else branches.")
	binary("exitWith", TypeIf, TypeCode, TypeAnything, "Runs the code and exits the current scope when the condition holds.")
	unary("while", TypeCode, TypeWhile, "Starts a while loop.")
	binary("do", TypeWhile, TypeCode, TypeNothing, "Runs the loop body.")
	binary("do", TypeFor, TypeCode, TypeAnything, "Runs the loop body.")
	binary("do", TypeSwitch, TypeCode, TypeAnything, "Runs the switch body.")
	unary("for", TypeString, TypeFor, "Starts a for loop over the named variable.")
	unary("for", TypeArray, TypeFor, "Starts a C-style for loop.")
	binary("from", TypeFor, TypeNumber, TypeFor, "Start value of a for loop.")
	binary("to", TypeFor, TypeNumber, TypeFor, "End value of a for loop.")
	binary("step", TypeFor, TypeNumber, TypeFor, "Step of a for loop.")
	binary("forEach", TypeCode, TypeArray, TypeAnything, "Runs the code for every element, bound to _x.")
	binary("forEach", TypeCode, TypeHashMap, TypeAnything, "Runs the code for every key (_x) and value (_y).")
	unary("switch", TypeAnything, TypeSwitch, "Starts a switch construct.")
	unary("case", TypeAnything, TypeAnything, "A switch case value.")
	unary("default", TypeCode, TypeNothing, "The default switch branch.")
	unary("waitUntil", TypeCode, TypeNothing, "Suspends until the code returns true.")
	unary("sleep", TypeNumber, TypeNothing, "Suspends for the given seconds.")
	unary("try", TypeCode, TypeException, "Runs code that may throw.")
	binary("catch", TypeException, TypeCode, TypeAnything, "Handles an exception, bound to _exception.")
	unary("throw", TypeAnything, TypeNothing, "Throws an exception.")

	// code
	unary("call", TypeCode, TypeAnything, "Runs the code in the current thread.")
	binary("call", TypeAnything, TypeCode, TypeAnything, "Runs the code with the left value bound to _this.")
	binary("spawn", TypeAnything, TypeCode, TypeScript, "Runs the code in a new thread.")
	unary("compile", TypeString, TypeCode, "Compiles a string into code.")
	unary("compileFinal", TypeString, TypeCode, "Compiles a string into final code.")
	unary("execVM", TypeString, TypeScript, "Compiles and runs a script file.")
	binary("execVM", TypeAnything, TypeString, TypeScript, "Compiles and runs a script file with arguments.")
	unary("params", TypeArray, TypeBoolean, "Parses _this into private variables.")
	binary("params", TypeAnything, TypeArray, TypeBoolean, "Parses the value into private variables.")
	unary("private", TypeString, TypeNothing, "Declares a private variable.")
	unary("private", TypeArray, TypeNothing, "Declares private variables.")
	unary("isNil", TypeString, TypeBoolean, "Whether the named variable is undefined.")
	unary("isNil", TypeCode, TypeBoolean, "Whether the code returns nothing.")

	// arrays and strings
	unary("count", TypeArray, TypeNumber, "Number of elements.")
	unary("count", TypeString, TypeNumber, "Number of characters.")
	binary("count", TypeCode, TypeArray, TypeNumber, "Number of elements for which the code is true.")
	binary("select", TypeArray, TypeNumber, TypeAnything, "Element at the index.")
	binary("select", TypeArray, TypeBoolean, TypeAnything, "First element when true, second otherwise.")
	binary("select", TypeArray, TypeArray, TypeArray, "Slice of the array.")
	binary("select", TypeArray, TypeCode, TypeArray, "Elements for which the code is true.")
	binary("select", TypeString, TypeArray, TypeString, "Substring.")
	binary("pushBack", TypeArray, TypeAnything, TypeNumber, "Appends an element and returns its index.")
	binary("append", TypeArray, TypeArray, TypeNothing, "Appends the elements of the right array.")
	binary("find", TypeArray, TypeAnything, TypeNumber, "Index of the element or -1.")
	binary("find", TypeString, TypeString, TypeNumber, "Index of the substring or -1.")
	binary("findIf", TypeArray, TypeCode, TypeNumber, "Index of the first element for which the code is true.")
	binary("apply", TypeArray, TypeCode, TypeArray, "Maps the code over the array.")
	binary("deleteAt", TypeArray, TypeNumber, TypeAnything, "Removes and returns the element at the index.")
	binary("resize", TypeArray, TypeNumber, TypeNothing, "Changes the array size.")
	binary("set", TypeArray, TypeArray, TypeNothing, "Sets the element at an index.")
	binary("set", TypeHashMap, TypeArray, TypeNothing, "Sets a key to a value.")
	binary("get", TypeHashMap, TypeAnything, TypeAnything, "Value stored under the key.")
	binary("sort", TypeArray, TypeBoolean, TypeNothing, "Sorts the array in place.")
	unary("reverse", TypeArray, TypeNothing, "Reverses the array in place.")
	unary("selectRandom", TypeArray, TypeAnything, "A random element of the array.")
	binary("joinString", TypeArray, TypeString, TypeString, "Joins the elements with a separator.")
	binary("splitString", TypeString, TypeString, TypeArray, "Splits a string on any of the delimiters.")
	unary("toUpper", TypeString, TypeString, "Upper-cased copy of the string.")
	unary("toLower", TypeString, TypeString, "Lower-cased copy of the string.")
	unary("toArray", TypeString, TypeArray, "Unicode code points of the string.")
	unary("toString", TypeArray, TypeString, "String from unicode code points.")
	unary("format", TypeArray, TypeString, "Formats a string with %1, %2 placeholders.")
	unary("str", TypeAnything, TypeString, "String representation of the value.")
	unary("localize", TypeString, TypeString, "Localized text for a stringtable key.")
	unary("typeName", TypeAnything, TypeString, "Name of the value's type.")

	// output
	unary("hint", TypeString, TypeNothing, "Shows a hint message.")
	unary("systemChat", TypeString, TypeNothing, "Writes a line to the system chat.")
	unary("diag_log", TypeAnything, TypeNothing, "Writes the value to the report file.")

	// objects and world
	unary("getPos", TypeObject, TypeArray, "Position of the object.")
	binary("setPos", TypeObject, TypeArray, TypeNothing, "Moves the object.")
	unary("alive", TypeObject, TypeBoolean, "Whether the object is alive.")
	unary("isNull", TypeObject, TypeBoolean, "Whether the object is null.")
	unary("isNull", TypeGroup, TypeBoolean, "Whether the group is null.")
	unary("units", TypeGroup, TypeArray, "Units of the group.")
	unary("units", TypeObject, TypeArray, "Units of the object's group.")
	unary("group", TypeObject, TypeGroup, "Group of the unit.")
	unary("side", TypeObject, TypeSide, "Side of the unit.")
	unary("name", TypeObject, TypeString, "Name of the unit.")
	unary("damage", TypeObject, TypeNumber, "Damage of the object.")
	binary("setDamage", TypeObject, TypeNumber, TypeNothing, "Sets the object's damage.")
	unary("vehicle", TypeObject, TypeObject, "Vehicle the unit is in, or the unit.")
	unary("deleteVehicle", TypeObject, TypeNothing, "Deletes the object.")
	binary("createVehicle", TypeString, TypeArray, TypeObject, "Creates a vehicle at the position.")
	binary("distance", TypeObject, TypeObject, TypeNumber, "Distance between two objects.")
	binary("distance", TypeArray, TypeArray, TypeNumber, "Distance between two positions.")

	// variables and networking
	binary("getVariable", TypeNamespace, TypeString, TypeAnything, "Value of a namespace variable.")
	binary("getVariable", TypeNamespace, TypeArray, TypeAnything, "Value of a namespace variable with default.")
	binary("getVariable", TypeObject, TypeString, TypeAnything, "Value of an object variable.")
	binary("getVariable", TypeObject, TypeArray, TypeAnything, "Value of an object variable with default.")
	binary("setVariable", TypeNamespace, TypeArray, TypeNothing, "Sets a namespace variable.")
	binary("setVariable", TypeObject, TypeArray, TypeNothing, "Sets an object variable.")
	unary("publicVariable", TypeString, TypeNothing, "Broadcasts a global variable.")
	binary("remoteExec", TypeAnything, TypeArray, TypeAnything, "Runs a function on remote machines.")
	binary("remoteExecCall", TypeAnything, TypeArray, TypeAnything, "Calls a function on remote machines.")

	// config
	unary("getText", TypeConfig, TypeString, "Text value of a config entry.")
	unary("getNumber", TypeConfig, TypeNumber, "Number value of a config entry.")
	unary("getArray", TypeConfig, TypeArray, "Array value of a config entry.")
	unary("isClass", TypeConfig, TypeBoolean, "Whether the config entry is a class.")
}
