package api

import (
	"net/http"

	"trainmate/api/internal/domain"
	"trainmate/api/internal/service"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authService service.AuthService,
	trainerService service.TrainerService,
	memberService service.MemberService,
	workoutService service.WorkoutService,
	exerciseService service.ExerciseService,
) {
	authHandler := NewAuthHandler(authService)
	memberHandler := NewMemberHandler(memberService, trainerService, workoutService)
	workoutHandler := NewWorkoutHandler(workoutService)
	exerciseHandler := NewExerciseHandler(exerciseService)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/signup", authHandler.Signup)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/token/refresh", authHandler.Refresh)
		// Logout requires a valid access token; the body carries the
		// refresh token to blacklist.
		authGroup.POST("/logout", authMiddleware, authHandler.Logout)
	}

	apiGroup := router.Group("/api")
	apiGroup.Use(authMiddleware)
	{
		apiGroup.GET("/exercises", exerciseHandler.ListExercises)

		membersGroup := apiGroup.Group("/members")
		{
			// Roster: trainers get their assigned members, member callers
			// get a soft deny (empty list plus message).
			membersGroup.GET("", memberHandler.ListMembers)

			membersGroup.GET("/profile", memberHandler.GetOwnProfile)
			membersGroup.PATCH("/profile", memberHandler.UpdateOwnProfile)
			membersGroup.DELETE("/profile", memberHandler.DeleteOwnAccount)
			membersGroup.GET("/profile/:userId", memberHandler.GetProfileByID)

			membersGroup.GET("/search", RoleMiddleware(domain.RoleTrainer), memberHandler.SearchMembers)

			membersGroup.GET("/:memberId", memberHandler.GetMemberDetail)
			membersGroup.POST("/:memberId/assign", RoleMiddleware(domain.RoleTrainer), memberHandler.AssignMember)

			membersGroup.POST("/:memberId/workout-sets", workoutHandler.LogSet)
			membersGroup.GET("/:memberId/workout-sets", workoutHandler.GetSetRows)
			membersGroup.GET("/:memberId/records", workoutHandler.GetRecords)

			membersGroup.POST("/:memberId/workout-exercises/:workoutExerciseId/sets", workoutHandler.AddSet)
			membersGroup.PATCH("/:memberId/workout-exercises/:workoutExerciseId/sets/:setId", workoutHandler.UpdateSet)
			membersGroup.DELETE("/:memberId/workout-exercises/:workoutExerciseId/sets/:setId", workoutHandler.DeleteSet)

			membersGroup.PATCH("/:memberId/workouts/:workoutId/completion", workoutHandler.SetCompletion)
		}
	}
}
