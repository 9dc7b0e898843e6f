// handlers/courses.go - Golf course directory
package handlers

import (
	"strconv"

	"teetime/services"
	"teetime/utils"

	"github.com/gofiber/fiber/v2"
)

// SearchCourses filters the directory
// GET /api/courses?q=&state=&zip=&limit=&offset=
func SearchCourses(c *fiber.Ctx) error {
	courses, total, err := courseService.Search(c.UserContext(), services.CourseFilter{
		Query:   c.Query("q"),
		State:   c.Query("state"),
		ZipCode: c.Query("zip"),
		Limit:   utils.QueryInt(c, "limit", 25),
		Offset:  utils.QueryInt(c, "offset", 0),
	})
	if err != nil {
		return handleError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{
		"courses": courses,
		"total":   total,
	})
}

// AutocompleteCourses suggests courses by name prefix
// GET /api/courses/autocomplete?q=
func AutocompleteCourses(c *fiber.Ctx) error {
	courses, err := courseService.Autocomplete(c.UserContext(), c.Query("q"))
	if err != nil {
		return handleError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"courses": courses})
}

// GetCoursesInBounds returns geocoded courses inside a map viewport
// GET /api/courses/map?south=&west=&north=&east=
func GetCoursesInBounds(c *fiber.Ctx) error {
	var b services.Bounds
	coords := []struct {
		key string
		dst *float64
	}{
		{"south", &b.South}, {"west", &b.West}, {"north", &b.North}, {"east", &b.East},
	}
	for _, p := range coords {
		v, err := strconv.ParseFloat(c.Query(p.key), 64)
		if err != nil {
			return utils.JSONError(c, fiber.StatusBadRequest, "Query parameter "+p.key+" must be a number")
		}
		*p.dst = v
	}

	courses, err := courseService.InBounds(c.UserContext(), b)
	if err != nil {
		return handleError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"courses": courses})
}

// GetCourse returns one course
// GET /api/courses/:id
func GetCourse(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "course")
	if err != nil {
		return handleError(c, err)
	}
	course, err := courseService.Get(c.UserContext(), id)
	if err != nil {
		return handleError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"course": course})
}
