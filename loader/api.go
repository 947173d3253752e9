package loader

import (
	lua "github.com/yuin/gopher-lua"
)

// registerAPI registers the Lua content constructors as globals.
//
// Curried constructors follow the Lua sugar `F "id" { ... }`, which is
// F("id") returning a function applied to the table.
func registerAPI(L *lua.LState, coll *collector) {
	// Scenario "id" { title = "...", ... } — also makes "id" the current
	// scenario for subsequent content declarations.
	L.SetGlobal("Scenario", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			coll.scenarios = append(coll.scenarios, rawScenario{id: id, table: tbl})
			coll.current = id
			return 0
		}))
		return 1
	}))

	// Persona "id" { name = "...", subtitle = "...", bio = "...", ... }
	L.SetGlobal("Persona", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			coll.personas = append(coll.personas, rawPersona{scenario: coll.current, id: id, table: tbl})
			return 0
		}))
		return 1
	}))

	// Replies "persona_id" { { match = {...}, topic = "...", reply = "..." }, ... }
	// Rule order in the table is declaration order and drives precedence.
	L.SetGlobal("Replies", L.NewFunction(func(L *lua.LState) int {
		persona := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			coll.replies = append(coll.replies, rawReplies{scenario: coll.current, persona: persona, table: tbl})
			return 0
		}))
		return 1
	}))

	// Sequence "persona_id" { po = { steps = {...}, fallback = "..." }, ... }
	L.SetGlobal("Sequence", L.NewFunction(func(L *lua.LState) int {
		persona := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			coll.sequences = append(coll.sequences, rawSequence{scenario: coll.current, persona: persona, table: tbl})
			return 0
		}))
		return 1
	}))

	// FollowUps "persona_id" { topic = "reply", ... }
	L.SetGlobal("FollowUps", L.NewFunction(func(L *lua.LState) int {
		persona := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			coll.followUps = append(coll.followUps, rawFollowUps{scenario: coll.current, persona: persona, table: tbl})
			return 0
		}))
		return 1
	}))

	// Hints { po = { topic = "hint", ... }, dev = { ... }, ... }
	L.SetGlobal("Hints", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		coll.hints = append(coll.hints, rawHints{scenario: coll.current, table: tbl})
		return 0
	}))

	// Backlog { { id = 1, title = "...", roles = {...}, ... }, ... }
	L.SetGlobal("Backlog", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		coll.backlogs = append(coll.backlogs, rawBacklog{scenario: coll.current, table: tbl})
		return 0
	}))

	// Tasks { PO = { { id = "t1", text = "..." }, ... }, ... }
	L.SetGlobal("Tasks", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		coll.tasks = append(coll.tasks, rawTasks{scenario: coll.current, table: tbl})
		return 0
	}))

	// ClassView { { name = "Team A", role = "PO", status = "...", chats = 4, backlog_touched = 4 }, ... }
	L.SetGlobal("ClassView", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		coll.classView = append(coll.classView, rawClassView{scenario: coll.current, table: tbl})
		return 0
	}))
}
