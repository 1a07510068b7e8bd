package services

// SeedItem is one entry of the built-in default catalog.
type SeedItem struct {
	Text     string
	Category string
	Points   int
}

// DefaultCatalog is the starter set of sustainability actions for an event.
// Admins can extend or deactivate items afterwards; a catalog refresh
// restores this set.
var DefaultCatalog = []SeedItem{
	{Text: "Bike or walk to the venue instead of driving", Category: "TRANSPORT", Points: 40},
	{Text: "Take public transport to the event", Category: "TRANSPORT", Points: 30},
	{Text: "Carpool with at least one other attendee", Category: "TRANSPORT", Points: 25},
	{Text: "Plan a trip with the train instead of a short flight", Category: "TRANSPORT", Points: 60},

	{Text: "Unplug chargers that are not in use", Category: "ENERGY", Points: 10},
	{Text: "Switch off the lights when leaving a room", Category: "ENERGY", Points: 10},
	{Text: "Turn off your monitor over lunch", Category: "ENERGY", Points: 10},
	{Text: "Lower your heating or AC by two degrees today", Category: "ENERGY", Points: 20},

	{Text: "Sort your lunch waste into the right bins", Category: "WASTE", Points: 15},
	{Text: "Recycle a bottle or can at the collection point", Category: "WASTE", Points: 10},
	{Text: "Bring a zero-waste lunch in your own container", Category: "WASTE", Points: 30},
	{Text: "Repair something instead of replacing it", Category: "WASTE", Points: 45},

	{Text: "Refill a reusable water bottle instead of buying one", Category: "WATER", Points: 10},
	{Text: "Take a shower under five minutes", Category: "WATER", Points: 20},
	{Text: "Report or fix a dripping tap", Category: "WATER", Points: 25},

	{Text: "Eat a fully vegetarian meal today", Category: "FOOD", Points: 25},
	{Text: "Choose a locally sourced snack at the venue", Category: "FOOD", Points: 15},
	{Text: "Finish your plate, leave no food waste", Category: "FOOD", Points: 15},
	{Text: "Try the vegan option at the food stand", Category: "FOOD", Points: 30},

	{Text: "Introduce a colleague to the sustainability booth", Category: "COMMUNITY", Points: 20},
	{Text: "Join a group session on climate action", Category: "COMMUNITY", Points: 25},
	{Text: "Share one sustainability tip with another attendee", Category: "COMMUNITY", Points: 15},
	{Text: "Sign up for a local environmental initiative", Category: "COMMUNITY", Points: 50},

	{Text: "Delete 100 old emails from your inbox", Category: "DIGITAL", Points: 10},
	{Text: "Unsubscribe from three newsletters you never read", Category: "DIGITAL", Points: 15},
	{Text: "Clean up old files from your cloud storage", Category: "DIGITAL", Points: 15},
	{Text: "Enable dark mode on your devices", Category: "DIGITAL", Points: 5},

	{Text: "Use the stairs instead of the elevator all day", Category: "GENERAL", Points: 15},
	{Text: "Pick up three pieces of litter around the venue", Category: "GENERAL", Points: 20},
	{Text: "Read one article about circular economy", Category: "GENERAL", Points: 15},
	{Text: "Calculate your personal carbon footprint", Category: "GENERAL", Points: 30},
}
